package ocr

import (
	"os"

	"google.golang.org/api/option"
)

// credentialOptions builds client options from the environment. Inline
// GOOGLE_CREDENTIALS wins over GOOGLE_APPLICATION_CREDENTIALS; with neither set
// the client falls back to Application Default Credentials.
func credentialOptions() (opts []option.ClientOption, explicit bool) {
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(credJSON))}, true
	}
	if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		return []option.ClientOption{option.WithCredentialsFile(credFile)}, true
	}
	return nil, false
}
