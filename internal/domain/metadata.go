package domain

// DetailsUnavailable is the placeholder for teams and record when an edge has
// no usable metadata.
const DetailsUnavailable = "Details N/A"

// EdgeMetadata describes the history two teammates share.
type EdgeMetadata struct {
	SharedTeams       string
	SharedGamesRecord string
	StartYearTogether *int
}

// MetadataStatus tags the outcome of a single edge lookup.
type MetadataStatus int

const (
	MetadataMissing MetadataStatus = iota
	MetadataFound
	MetadataFailed
)

func (s MetadataStatus) String() string {
	switch s {
	case MetadataFound:
		return "found"
	case MetadataFailed:
		return "failed"
	default:
		return "missing"
	}
}

// MetadataResult is the tagged outcome of a lookup. Failed lookups render the
// same as missing ones; Err is kept for logging only.
type MetadataResult struct {
	Status   MetadataStatus
	Metadata EdgeMetadata
	Err      error
}

// Found wraps metadata in a found result.
func Found(m EdgeMetadata) MetadataResult {
	return MetadataResult{Status: MetadataFound, Metadata: m}
}

// Missing is the not-found result.
func Missing() MetadataResult {
	return MetadataResult{Status: MetadataMissing}
}

// Failed records a lookup error.
func Failed(err error) MetadataResult {
	return MetadataResult{Status: MetadataFailed, Err: err}
}

// OrPlaceholder returns the metadata when found, placeholders otherwise.
func (r MetadataResult) OrPlaceholder() EdgeMetadata {
	if r.Status != MetadataFound {
		return EdgeMetadata{
			SharedTeams:       DetailsUnavailable,
			SharedGamesRecord: DetailsUnavailable,
		}
	}
	m := r.Metadata
	if m.SharedTeams == "" {
		m.SharedTeams = DetailsUnavailable
	}
	if m.SharedGamesRecord == "" {
		m.SharedGamesRecord = DetailsUnavailable
	}
	return m
}

// PairRecord is the storage form of edge metadata shared by the JSON import
// file, the Supabase table, the badger values and the DynamoDB items.
type PairRecord struct {
	PlayerIDLow       int64  `json:"player_id_low" dynamodbav:"PlayerIDLow"`
	PlayerIDHigh      int64  `json:"player_id_high" dynamodbav:"PlayerIDHigh"`
	SharedTeams       string `json:"shared_teams" dynamodbav:"SharedTeams"`
	SharedGamesRecord string `json:"shared_games_record" dynamodbav:"SharedGamesRecord"`
	StartYearTogether *int   `json:"start_year_together,omitempty" dynamodbav:"StartYearTogether,omitempty"`
}

// Key returns the normalised pair key of the record.
func (r PairRecord) Key() PairKey {
	return NewPairKey(PlayerID(r.PlayerIDLow), PlayerID(r.PlayerIDHigh))
}

// Metadata converts the record to EdgeMetadata.
func (r PairRecord) Metadata() EdgeMetadata {
	return EdgeMetadata{
		SharedTeams:       r.SharedTeams,
		SharedGamesRecord: r.SharedGamesRecord,
		StartYearTogether: r.StartYearTogether,
	}
}
