package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"engagemon/internal/config"
)

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"monitor": false, "task": false, "session": false, "init": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestFindAccount(t *testing.T) {
	cfg = config.DefaultConfig()
	cfg.Accounts = []config.AccountConfig{
		{Username: "dormant", Enabled: false},
		{Username: "ember_k", Enabled: true},
	}

	acct, err := findAccount("")
	if err != nil {
		t.Fatalf("findAccount returned error: %v", err)
	}
	if acct.Username != "ember_k" {
		t.Errorf("expected first enabled account, got %s", acct.Username)
	}

	acct, err = findAccount("dormant")
	if err != nil {
		t.Fatalf("findAccount by name returned error: %v", err)
	}
	if acct.Username != "dormant" {
		t.Errorf("expected dormant, got %s", acct.Username)
	}

	if _, err := findAccount("nobody"); err == nil {
		t.Error("expected error for unknown account")
	}
}

func TestRunInitWritesConfig(t *testing.T) {
	logger = zap.NewNop()
	cfg = config.DefaultConfig()
	cfgPath = filepath.Join(t.TempDir(), "engagemon.yaml")

	output := captureOutput(t, func() {
		if err := runInit(initCmd, nil); err != nil {
			t.Fatalf("runInit returned error: %v", err)
		}
	})
	if !strings.Contains(output, "wrote") {
		t.Fatalf("expected write confirmation, got: %s", output)
	}

	if err := runInit(initCmd, nil); err == nil {
		t.Fatal("expected error when config already exists")
	}

	loaded, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0].Enabled {
		t.Error("starter account should exist and be disabled")
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	rOut, wOut, _ := os.Pipe()
	os.Stdout = wOut

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	os.Stdout = origOut
	return <-done
}
