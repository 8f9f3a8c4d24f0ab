package main

// Exit codes. git-receive-pack ignores the post-receive exit status, so these
// matter only to whoever installed the hook and reads server logs.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (bad input, git query or delivery failure)
	ExitConfigError = 2 // Configuration error (missing required settings)
)
