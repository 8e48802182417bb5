package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/m3rciful/chartbot/core/buildinfo"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})

	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), buildinfo.Version) {
		t.Fatalf("version output = %q", out.String())
	}
}

func TestRunOptions(t *testing.T) {
	opts := runOptions("custom.yaml")
	if opts.ConfigPath != "custom.yaml" || opts.ConfigEnvVar != "CONFIG_PATH" {
		t.Fatalf("unexpected config resolution: %+v", opts)
	}
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		t.Fatal("loader and bootstrap must be set")
	}
	if _, err := opts.Bootstrap(t.Context(), nil); err == nil {
		t.Fatal("expected error for foreign config type")
	}
}
