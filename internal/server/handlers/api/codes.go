package api

const (
	CodeBadRequest      = "ERR_BAD_REQUEST"      // malformed body or parameters
	CodeNotFound        = "ERR_NOT_FOUND"        // unknown asset or route
	CodeAssetExists     = "ERR_ASSET_EXISTS"     // the file is already registered
	CodeInvalidSettings = "ERR_INVALID_SETTINGS" // settings failed validation or the subfolder probe
	CodeNotConfigured   = "ERR_NOT_CONFIGURED"   // no storage client can be built from the current settings
	CodeSyncFailed      = "ERR_SYNC_FAILED"      // a sync operation or offload failed
	CodeUnauthorized    = "ERR_UNAUTHORIZED"     // missing or wrong bearer token
	CodeRateLimited     = "ERR_RATE_LIMITED"     // rate limit exceeded
	CodeUnknownError    = "ERR_UNKNOWN_ERROR"    // anything else
)
