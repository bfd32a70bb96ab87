package dataset

// Session record columns as they appear in the xDR export.
const (
	ColIMSI                = "IMSI"
	ColBearerID            = "Bearer Id"
	ColHandsetType         = "Handset Type"
	ColHandsetManufacturer = "Handset Manufacturer"
	ColDuration            = "Dur. (ms)"
	ColTotalDL             = "Total DL (Bytes)"
	ColTotalUL             = "Total UL (Bytes)"
)

// User aggregate columns.
const (
	ColSessions        = "xDR_sessions"
	ColTotalDuration   = "total_duration"
	ColTotalDownload   = "total_download"
	ColTotalUpload     = "total_upload"
	ColTotalDataVolume = "total_data_volume"
)

// Engagement feature columns used for clustering.
const (
	ColSessionFrequency = "session_frequency"
	ColSessionDuration  = "session_duration"
	ColTotalTraffic     = "total_traffic"
)

// Derived label columns.
const (
	ColDecile  = "decile"
	ColCluster = "cluster"
)

// SessionColumns lists the columns every session record must carry.
var SessionColumns = []string{
	ColIMSI,
	ColBearerID,
	ColHandsetType,
	ColHandsetManufacturer,
	ColDuration,
	ColTotalDL,
	ColTotalUL,
}

// EngagementFeatures is the fixed feature subset k-means runs on.
var EngagementFeatures = []string{ColSessionFrequency, ColSessionDuration, ColTotalTraffic}
