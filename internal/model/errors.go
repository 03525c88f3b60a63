package model

// ConfigurationError reports invalid setup input. It is only returned while
// wiring components, never from steady-state operations.
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Msg
	}
	return "configuration error: " + e.Field + ": " + e.Msg
}

// ConfigErr is shorthand for building a *ConfigurationError.
func ConfigErr(field, msg string) error {
	return &ConfigurationError{Field: field, Msg: msg}
}
