package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide prints how to obtain a feed bearer token
func ShowTokenGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "FEED TOKEN GUIDE")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reading your upvoted or saved listings needs an OAuth bearer token.")
	fmt.Fprintln(w, "Public subreddit listings work without one.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 1: Register a script app")
	fmt.Fprintln(w, "   - Open https://www.reddit.com/prefs/apps while logged in")
	fmt.Fprintln(w, "   - Create an app of type 'script'")
	fmt.Fprintln(w, "   - Note the client id (under the app name) and the secret")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 2: Request a token")
	fmt.Fprintln(w, "   curl -A 'wallgrab/1.0' -u CLIENT_ID:SECRET \\")
	fmt.Fprintln(w, "        -d grant_type=password -d username=USER -d password=PASS \\")
	fmt.Fprintln(w, "        https://www.reddit.com/api/v1/access_token")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "STEP 3: Copy the access_token value and paste it at the prompt")
	fmt.Fprintln(w, "   - Tokens expire after about an hour; run 'wallgrab auth login' again when requests fail with 401")
	fmt.Fprintf(w, "   - For scripts, export %s instead of storing the token\n", EnvToken)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The token grants access to your account. Do not share it.")
	fmt.Fprintln(w, rule)
}
