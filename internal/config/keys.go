package config

// Player keys configure the reading surface.
const (
	PlayerWPM          = "player.wpm"
	PlayerOffsetStepMS = "player.offset_step_ms"
	PlayerResume       = "player.resume"
)

// Logs keys configure the logrus file sink.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJSON  = "logs.json"
)

// Progress keys configure the remote achievement procedure.
const (
	ProgressEndpoint  = "progress.endpoint"
	ProgressAPIKey    = "progress.api_key"
	ProgressProcedure = "progress.procedure"
	ProgressUserID    = "progress.user_id"
	ProgressTimeout   = "progress.timeout"
)
