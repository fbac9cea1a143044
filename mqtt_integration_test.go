package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildBinary compiles the service into dir
func buildBinary(t *testing.T, dir string) string {
	t.Helper()
	binaryPath := filepath.Join(dir, "crewpath-test")
	buildCmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if output, err := buildCmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}
	return binaryPath
}

// TestMQTTServiceStartupShutdown tests the full MQTT service lifecycle
func TestMQTTServiceStartupShutdown(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	tmpDir := t.TempDir()

	configYAML := `mqtt:
  broker: "mqtt://localhost:1883"
  publishPrefix: "crewpath-test"
  clientId: "crewpath-test"

habitat:
  shape: cylinder
  radius: 5
  floorHeight: 3
`
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	noBrokerPath := filepath.Join(tmpDir, "no-broker.yaml")
	if err := os.WriteFile(noBrokerPath, []byte("habitat:\n  shape: dome\n  radius: 4\n  floorHeight: 2.5\n"), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}

	binaryPath := buildBinary(t, tmpDir)

	tests := []struct {
		name           string
		args           []string
		expectInOutput []string
		expectFailure  bool
		timeout        time.Duration
	}{
		{
			name: "successful startup with config",
			args: []string{"--mqtt", "--config=" + configPath},
			expectInOutput: []string{
				"Starting crewpath service",
				"Loaded config from",
				"Habitat: cylinder",
				"Service Running",
				"Subscribed topics:",
				"crewpath-test/query",
				"crewpath-test/layout",
				"Press Ctrl+C to stop",
				"connecting to broker",
			},
			timeout: 5 * time.Second,
		},
		{
			name: "missing config file",
			args: []string{"--mqtt", "--config=nonexistent.yaml"},
			expectInOutput: []string{
				"Starting crewpath service",
				"failed to load config",
			},
			expectFailure: true,
			timeout:       2 * time.Second,
		},
		{
			name: "broker not configured",
			args: []string{"--mqtt", "--config=" + noBrokerPath},
			expectInOutput: []string{
				"MQTT broker not configured",
			},
			expectFailure: true,
			timeout:       2 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), tt.timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, binaryPath, tt.args...)
			cmd.Env = append(os.Environ(), "MQTT_BROKER=")
			output, err := cmd.CombinedOutput()
			outputStr := string(output)

			for _, expected := range tt.expectInOutput {
				if !strings.Contains(outputStr, expected) {
					t.Errorf("Expected output to contain '%s', but it didn't.\nFull output:\n%s",
						expected, outputStr)
				}
			}

			if tt.expectFailure && (err == nil || ctx.Err() != nil) {
				t.Errorf("Expected command to exit with an error, got %v", err)
			}
		})
	}
}

// TestMQTTServiceSignalHandling tests SIGINT/SIGTERM handling
func TestMQTTServiceSignalHandling(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	tmpDir := t.TempDir()
	configYAML := `mqtt:
  broker: "mqtt://localhost:1883"
  publishPrefix: "crewpath-test"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configYAML), 0644); err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	binaryPath := buildBinary(t, tmpDir)

	cmd := exec.Command(binaryPath, "--mqtt", "--http", "--http-port=18080", "--config="+configPath)
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start service: %v", err)
	}

	// Give it time to start
	time.Sleep(2 * time.Second)

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		t.Logf("Failed to send SIGINT (process may have already exited): %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Service exited with error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Error("Service did not shut down within timeout")
		if err := cmd.Process.Kill(); err != nil {
			t.Logf("Failed to kill process: %v", err)
		}
	}
}

// TestMQTTServiceHelpFlag tests the --help output includes mqtt flag
func TestMQTTServiceHelpFlag(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	cmd := exec.Command("go", "run", ".", "--help")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if !strings.Contains(err.Error(), "exit status") {
			t.Fatalf("Failed to run --help: %v", err)
		}
	}

	outputStr := string(output)
	for _, want := range []string{"-mqtt", "MQTT service mode", "-query", "-layout-url"} {
		if !strings.Contains(outputStr, want) {
			t.Errorf("Expected --help output to contain %q", want)
		}
	}
}
