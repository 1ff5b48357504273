package sentinel_test

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/jwtx"
	"github.com/aussiebroadwan/sentinel/pkg/twofasdk"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helpers for sentinel end-to-end tests. The service
 * runs from its Docker image; tokens are minted locally with the shared
 * HS256 secret.
 */

const (
	testImageName = "sentinel-test:latest"
	tokenIssuer   = "https://id.example.test"
)

var (
	jwtSecret = strings.Repeat("e2e-secret-", 4)

	// Set by TestMain when the image could not be built.
	dockerUnavailable error
)

// TestMain builds the Docker image once before all tests and removes it
// afterwards.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	fmt.Fprintf(os.Stdout, "Building Sentinel Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stdout, " unavailable: %v\n", err)
		dockerUnavailable = err
	} else {
		fmt.Fprintf(os.Stdout, " done\n")
	}

	exitCode := m.Run()

	if dockerUnavailable == nil {
		fmt.Fprintf(os.Stdout, "Cleaning up Sentinel Docker image...")
		cleanupDockerImage()
		fmt.Fprintf(os.Stdout, " done\n")
	}

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/sentinel/Dockerfile",
		"../../../")
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Run()
}

func cleanupDockerImage() {
	cmd := exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // the image might already be gone
}

// setupSentinel starts the service and returns a client for it. relaxed
// raises the rate limits so flows with many calls do not trip them.
func setupSentinel(t *testing.T, relaxed bool) *twofasdk.SDKClient {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	if dockerUnavailable != nil {
		t.Skipf("docker not available: %v", dockerUnavailable)
	}
	ctx := context.Background()

	env := map[string]string{
		"ENV":                  "test",
		"LOG_LEVEL":            "info",
		"LOG_FORMAT":           "json",
		"SENTINEL_JWT_SECRET":  jwtSecret,
		"SENTINEL_JWT_ISSUER":  tokenIssuer,
		"SENTINEL_MASTER_KEY":  "e2e-master-key-0123456789abcdef",
		"VERIFICATION_BACKEND": "memory",
		"EMAIL_PROVIDER":       "log",
	}
	if relaxed {
		env["RATELIMIT_STRICT_REQUESTS"] = "1000"
		env["RATELIMIT_STRICT_BURST"] = "1000"
		env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
		env["RATELIMIT_MODERATE_BURST"] = "1000"
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        testImageName,
			ExposedPorts: []string{"8080/tcp"},
			Env:          env,
			WaitingFor: wait.ForHTTP("/readyz").
				WithPort("8080/tcp").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	return twofasdk.NewSDKClient(fmt.Sprintf("http://%s:%s", host, port.Port()))
}

// login mints an access token for userID as the identity provider would.
func login(t *testing.T, client *twofasdk.SDKClient, userID, sid string) *twofasdk.Session {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte(jwtSecret))
	require.NoError(t, err)

	claims := jwtx.NewAccessClaims(userID, sid, jwtx.DefaultAccessTokenTTL, tokenIssuer, nil, time.Now())
	claims.Email = userID + "@example.test"
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	return client.NewSession(token)
}

// assertAPIError checks err carries the given error code.
func assertAPIError(t *testing.T, err error, code string) *twofasdk.APIError {
	t.Helper()
	var apiErr *twofasdk.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, code, apiErr.Code, apiErr.Description)
	return apiErr
}
