package authflow

import (
	"os"

	"golang.org/x/term"
)

// automationEnvVars mark environments where launching a browser is useless:
// the redirect would open on a machine nobody is looking at.
var automationEnvVars = []string{
	"CI",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"CIRCLECI",
	"JENKINS_URL",
}

// browserSuppressed reports whether interactive browser launch is disallowed,
// either by explicit configuration or because the process runs in an
// automated or displayless environment.
func (a *Authenticator) browserSuppressed() bool {
	if a.noBrowser {
		return true
	}

	for _, v := range automationEnvVars {
		if a.getenv(v) != "" {
			return true
		}
	}

	// SSH session without X forwarding: a local browser cannot reach the
	// loopback listener on this host.
	if (a.getenv("SSH_CONNECTION") != "" || a.getenv("SSH_TTY") != "") && a.getenv("DISPLAY") == "" {
		return true
	}

	if f, ok := a.in.(*os.File); ok && !term.IsTerminal(int(f.Fd())) {
		return true
	}

	return false
}
