package installer

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"nxsetup/internal/executor"
	"nxsetup/internal/executor/executortest"
	"nxsetup/internal/models"
)

// simHost answers the commands the installer runs and keeps the resulting
// host state.
type simHost struct {
	fake *executortest.Fake

	users     map[string]string // user -> primary group
	groups    map[string]bool
	owners    map[string]string // installed path -> "user:group"
	enabled   map[string]bool
	active    map[string]bool
	firewalld bool
	ports     map[string]bool
}

var ok = executor.Result{}

func newSimHost() *simHost {
	h := &simHost{
		users:   map[string]string{},
		groups:  map[string]bool{},
		owners:  map[string]string{},
		enabled: map[string]bool{},
		active:  map[string]bool{},
		ports:   map[string]bool{},
	}

	f := executortest.New().Available(models.DefaultConfig().RequiredTools...)

	f.On("getent passwd", func(args []string) (executor.Result, error) {
		if _, found := h.users[args[1]]; found {
			return executor.Result{Stdout: args[1] + ":x:990:990::/var/lib/node_exporter:/usr/sbin/nologin\n"}, nil
		}
		return executortest.Exit("getent passwd", 2, "")(args)
	})
	f.On("getent group", func(args []string) (executor.Result, error) {
		if h.groups[args[1]] {
			return executor.Result{Stdout: args[1] + ":x:990:\n"}, nil
		}
		return executortest.Exit("getent group", 2, "")(args)
	})
	f.On("groupadd", func(args []string) (executor.Result, error) {
		h.groups[args[len(args)-1]] = true
		return ok, nil
	})
	f.On("useradd", func(args []string) (executor.Result, error) {
		group := flagValue(args, "--gid")
		if !h.groups[group] {
			return executortest.Exit("useradd", 6, "group '"+group+"' does not exist")(args)
		}
		h.users[args[len(args)-1]] = group
		return ok, nil
	})
	f.On("userdel", func(args []string) (executor.Result, error) {
		if _, found := h.users[args[0]]; !found {
			return executortest.Exit("userdel", 6, "user does not exist")(args)
		}
		delete(h.users, args[0])
		return ok, nil
	})
	f.On("groupdel", func(args []string) (executor.Result, error) {
		delete(h.groups, args[0])
		return ok, nil
	})
	f.On("install", func(args []string) (executor.Result, error) {
		// install -o U -g G -m 0755 SRC DST
		src, dst := args[len(args)-2], args[len(args)-1]
		data, err := os.ReadFile(src)
		if err != nil {
			return executortest.Exit("install", 1, err.Error())(args)
		}
		if err := os.WriteFile(dst, data, 0o755); err != nil {
			return executortest.Exit("install", 1, err.Error())(args)
		}
		h.owners[dst] = flagValue(args, "-o") + ":" + flagValue(args, "-g")
		return ok, nil
	})
	f.On("systemctl enable", func(args []string) (executor.Result, error) {
		h.enabled[args[1]] = true
		return ok, nil
	})
	f.On("systemctl disable", func(args []string) (executor.Result, error) {
		delete(h.enabled, args[1])
		return ok, nil
	})
	f.On("systemctl start", func(args []string) (executor.Result, error) {
		h.active[args[1]] = true
		return ok, nil
	})
	f.On("systemctl stop", func(args []string) (executor.Result, error) {
		if !h.active[args[1]] {
			return executortest.Exit("systemctl stop", 5, "Unit "+args[1]+" not loaded.")(args)
		}
		delete(h.active, args[1])
		return ok, nil
	})
	f.On("systemctl is-active --quiet firewalld", func(args []string) (executor.Result, error) {
		if h.firewalld {
			return ok, nil
		}
		return executortest.Exit("systemctl is-active", 3, "")(args)
	})
	f.On("firewall-cmd --permanent", func(args []string) (executor.Result, error) {
		arg := args[1]
		switch {
		case strings.HasPrefix(arg, "--add-port="):
			h.ports[strings.TrimPrefix(arg, "--add-port=")] = true
		case strings.HasPrefix(arg, "--remove-port="):
			port := strings.TrimPrefix(arg, "--remove-port=")
			if !h.ports[port] {
				return executortest.Exit("firewall-cmd", 16, "NOT_ENABLED")(args)
			}
			delete(h.ports, port)
		}
		return ok, nil
	})

	h.fake = f
	return h
}

func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

const (
	testTag     = "v1.8.2"
	testAsset   = "node_exporter-1.8.2.linux-amd64.tar.gz"
	testPayload = "#!/bin/sh\necho node_exporter\n"
)

type releaseOpts struct {
	assetName   string
	badChecksum bool
}

// releaseServer serves a latest-release document, one tarball and its
// sha256sums.txt.
func releaseServer(t *testing.T, opts releaseOpts) *httptest.Server {
	t.Helper()
	if opts.assetName == "" {
		opts.assetName = testAsset
	}

	tarball := buildTarball(t, "node_exporter-1.8.2.linux-amd64/node_exporter", testPayload)
	sum := sha256.Sum256(tarball)
	digest := hex.EncodeToString(sum[:])
	if opts.badChecksum {
		digest = strings.Repeat("0", len(digest))
	}

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"tag_name": testTag,
			"assets": []map[string]any{
				{"name": opts.assetName, "browser_download_url": srv.URL + "/dl/" + opts.assetName, "size": len(tarball)},
				{"name": "sha256sums.txt", "browser_download_url": srv.URL + "/dl/sha256sums.txt"},
			},
		})
	})
	mux.HandleFunc("/dl/"+opts.assetName, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(tarball)
	})
	mux.HandleFunc("/dl/sha256sums.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(digest + "  " + opts.assetName + "\n"))
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func buildTarball(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Mode:     0o755,
		Size:     int64(len(body)),
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}
