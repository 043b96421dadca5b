package errors

// Convenience functions for common error patterns

// Config errors

func ConfigUnreadable(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryNoInput, SeverityFatal, "unable to read config file").
		WithContext("path", path)
}

func ConfigInvalid(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "unable to parse config file").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *KatSiteError {
	return New(CategoryConfig, SeverityFatal, "invalid configuration: "+field+": "+reason).
		WithContext("field", field).
		WithContext("reason", reason)
}

func GlobInvalid(pattern string, cause error) *KatSiteError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "unable to resolve input glob").
		WithContext("pattern", pattern)
}

// Filesystem errors

func OutputUncreatable(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryCantCreate, SeverityFatal, "unable to create output directory").
		WithContext("path", path)
}

func InputUnreadable(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "unable to read input file").
		WithContext("path", path)
}

func OutputUnwritable(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "unable to write output file").
		WithContext("path", path)
}

// Plugin errors

func PluginUnavailable(plugin string, cause error) *KatSiteError {
	return Wrap(cause, CategoryPlugin, SeverityFatal, "unable to start plugin "+plugin).
		WithContext("plugin", plugin)
}

// Data errors

func InvalidEncoding(path string, cause error) *KatSiteError {
	return Wrap(cause, CategoryData, SeverityFatal, "plugin output is not valid UTF-8").
		WithContext("path", path)
}

// Internal errors

func InternalError(message string, cause error) *KatSiteError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
