package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowAPIKeyGuide prints how to obtain and store an API key
func ShowAPIKeyGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "API KEY SETUP")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "postscope reads public posts through the SocialData API, which needs")
	fmt.Fprintln(w, "a personal API key.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "1. Create an account at https://socialdata.tools")
	fmt.Fprintln(w, "2. Open the dashboard and copy your API key")
	fmt.Fprintln(w, "3. Store it with one of:")
	fmt.Fprintln(w, "     postscope auth login                 (system keychain or encrypted file)")
	fmt.Fprintf(w, "     export %s=<key>          (environment)\n", EnvVars[0])
	fmt.Fprintln(w, "     api.api_key in the config file       (least preferred)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Requests are billed per call. A 402 response means the account has run")
	fmt.Fprintln(w, "out of credits.")
	fmt.Fprintln(w, rule)
}
