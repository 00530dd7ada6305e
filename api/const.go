package api

const (
	statusAuthFailed     = "auth failed"
	statusAuthSuccessful = "auth successful"
	tokenMissing         = "missing"
	tokenSaved           = "present, saved"

	chatAuthFailed = "<code>auth failed</code>\n<code>try to re-run /connect</code>"
	chatAuthOK     = "<code>auth successful</code>\n<code>user_name: %s</code>\n"
	chatTokenMiss  = "<code>user_token: missing</code>\n\n"
	chatSheetLink  = "<a href=\"%s\">Click here to set personal token 🡥</a>"
	chatNotSaved   = "<code>user_token: present, NOT saved (!)</code>\n<code>please, retry /connect</code>"
	chatSaved      = "<code>user_token: present, saved</code>"
)
