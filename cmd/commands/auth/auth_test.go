package auth

import (
	"bytes"
	"strings"
	"testing"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"
)

func setupStore(t *testing.T) *auth.MockStore {
	t.Helper()
	store := auth.NewMockStore()
	app.SetAuthStore(store)
	t.Cleanup(app.ResetAuthStore)
	for _, env := range []string{"HCLOUD_TOKEN", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY",
		"FLEETMETRICS_STORAGE_ACCESS_KEY", "FLEETMETRICS_STORAGE_SECRET_KEY"} {
		t.Setenv(env, "")
	}
	return store
}

func execAuth(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func TestLogin_TokenFlag(t *testing.T) {
	store := setupStore(t)

	out, err := execAuth(t, "", "login", "hetzner", "--token", "secret-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Saved credentials for provider hetzner") {
		t.Errorf("unexpected output: %s", out)
	}
	if got, _ := store.GetToken("hetzner"); got != "secret-token" {
		t.Errorf("stored token = %q, want %q", got, "secret-token")
	}
}

func TestLogin_TokenFlagRejectedForKeyPair(t *testing.T) {
	setupStore(t)

	_, err := execAuth(t, "", "login", "aws", "--token", "x")
	if err == nil || !strings.Contains(err.Error(), "single-token") {
		t.Errorf("expected single-token error, got %v", err)
	}
}

func TestLogin_ReadsKeyPairFromStdin(t *testing.T) {
	store := setupStore(t)

	out, err := execAuth(t, "AKIAEXAMPLE\nsecret-key\n", "login", "aws")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Enter Access Key ID:") || !strings.Contains(out, "Enter Secret Access Key:") {
		t.Errorf("expected prompts, got: %s", out)
	}
	if got, _ := store.GetToken("aws-accesskeyid"); got != "AKIAEXAMPLE" {
		t.Errorf("access key = %q", got)
	}
	if got, _ := store.GetToken("aws-secretaccesskey"); got != "secret-key" {
		t.Errorf("secret key = %q", got)
	}
}

func TestLogin_EmptyInput(t *testing.T) {
	setupStore(t)

	_, err := execAuth(t, "\n", "login", "hetzner")
	if err == nil || !strings.Contains(err.Error(), "cannot be empty") {
		t.Errorf("expected empty error, got %v", err)
	}
}

func TestLogin_UnknownProvider(t *testing.T) {
	setupStore(t)

	_, err := execAuth(t, "", "login", "gcp")
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("expected unknown provider error, got %v", err)
	}
}

func TestLogout(t *testing.T) {
	store := setupStore(t)
	_ = store.SetToken("storage-accesskey", "a")
	_ = store.SetToken("storage-secretkey", "b")

	out, err := execAuth(t, "", "logout", "storage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Removed credentials for provider storage") {
		t.Errorf("unexpected output: %s", out)
	}
	if _, err := store.GetToken("storage-accesskey"); err == nil {
		t.Error("expected access key to be removed")
	}

	out, err = execAuth(t, "", "logout", "storage")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No stored credentials") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestStatus(t *testing.T) {
	store := setupStore(t)
	_ = store.SetToken("hetzner", "tok")
	_ = store.SetToken("aws-accesskeyid", "id")
	t.Setenv("FLEETMETRICS_STORAGE_ACCESS_KEY", "env-access")
	t.Setenv("FLEETMETRICS_STORAGE_SECRET_KEY", "env-secret")

	out, err := execAuth(t, "", "status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := map[string]string{}
	for _, line := range strings.Split(out, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines[fields[0]] = line
		}
	}
	if !strings.Contains(lines["hetzner"], "logged in") || !strings.Contains(lines["hetzner"], "keychain") {
		t.Errorf("hetzner line: %q", lines["hetzner"])
	}
	if !strings.Contains(lines["aws"], "incomplete") {
		t.Errorf("aws line: %q", lines["aws"])
	}
	if !strings.Contains(lines["storage"], "env") {
		t.Errorf("storage line: %q", lines["storage"])
	}
}
