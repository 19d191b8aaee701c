package config

import (
	"fmt"
	"os"
)

// Template returns a commented s3200ctl.toml holding the defaults.
func Template() string {
	return configTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o600)
}

const configTemplate = `# serial line: driver is bugst, tarm or sim
port = "/dev/ttyAMA0"
driver = "bugst"
baud = 57600
read_timeout = "3s"

# writes are rejected unless readonly is false
readonly = true
max_list_items = 500
retry_attempts = 1

# empty catalog uses the built-in one; codepage overrides the catalog's
catalog = ""
codepage = ""

listen = ":9200"
cors_origins = ["http://localhost:3000"]
poll_interval = "10s"
poll_group = "important"
# bearer token required for PUT /settings when set
write_token = ""
`
