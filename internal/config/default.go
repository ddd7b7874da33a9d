package config

// Field is a configuration entry with its factory default.
type Field struct {
	Key         string
	Value       any
	Description string
}

var fields = []Field{
	{PlayerWPM, 300, "Words per minute of the reading surface"},
	{PlayerOffsetStepMS, 100, "Subtitle offset change per key press, in milliseconds"},
	{PlayerResume, true, "Resume documents at the last saved location"},
	{LogsWrite, true, "Write logs to the state directory"},
	{LogsLevel, "info", "Log level (trace, debug, info, warn, error)"},
	{LogsJSON, false, "Write logs as JSON"},
	{ProgressEndpoint, "", "Base URL of the hosted backend"},
	{ProgressAPIKey, "", "API key sent to the hosted backend"},
	{ProgressProcedure, "get_user_achievements", "Remote procedure computing achievements"},
	{ProgressUserID, "", "User whose achievements are shown at session start"},
	{ProgressTimeout, "10s", "Timeout of the remote achievement call"},
}

// Default maps every key to its field.
var Default = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Key] = f
	}
	return m
}()

// EnvExposed lists the keys bound to YOMU_* environment variables.
var EnvExposed = []string{
	LogsLevel,
	ProgressEndpoint,
	ProgressAPIKey,
	ProgressUserID,
}
