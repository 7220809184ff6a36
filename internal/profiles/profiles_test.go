package profiles

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	p := InDir(dir)
	writeFile(t, p.Config, `[default]
region = us-east-1

[profile prod]
region = us-west-2

[sso-session corp]
sso_region = us-east-1

[profile dev]
output = json
`)
	writeFile(t, p.Credentials, `[prod]
aws_access_key_id = AKIA1

[legacy]
aws_access_key_id = AKIA2
`)

	names, err := Discover(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "prod", "dev", "legacy"}, names)
}

func TestDiscover_MissingFiles(t *testing.T) {
	names, err := Discover(InDir(t.TempDir()))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDefaultPaths_EnvOverride(t *testing.T) {
	t.Setenv(envConfigFile, "/tmp/custom-config")
	t.Setenv(envCredentialsFile, "/tmp/custom-creds")

	p, err := DefaultPaths()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-config", p.Config)
	assert.Equal(t, "/tmp/custom-creds", p.Credentials)
}

func TestWriteFiles(t *testing.T) {
	p := InDir(filepath.Join(t.TempDir(), "aws"))

	err := WriteFiles(p, []Profile{
		{Name: "default", Region: "us-east-1", AccessKeyID: "AK1", SecretAccessKey: "S1", SessionToken: "T1"},
		{Name: "sandbox", Region: "us-east-1", AccessKeyID: "AK2", SecretAccessKey: "S2", SessionToken: "T2"},
	})
	require.NoError(t, err)

	info, err := os.Stat(p.Credentials)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := os.ReadFile(p.Config)
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "[default]")
	assert.Contains(t, string(cfg), "[profile sandbox]")
	assert.Contains(t, string(cfg), "output = json")

	creds, err := os.ReadFile(p.Credentials)
	require.NoError(t, err)
	assert.Contains(t, string(creds), "[sandbox]")
	assert.Regexp(t, `aws_session_token\s*=\s*T2`, string(creds))

	names, err := Discover(p)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "sandbox"}, names)
}
