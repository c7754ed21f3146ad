package unitfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"nxsetup/internal/models"
)

var ErrNoUnitFile = errors.New("unit file not found")

// trailingDigits picks the port off a listen address such as ":9100",
// "0.0.0.0:9100" or "[::]:9100".
var trailingDigits = regexp.MustCompile(`(\d+)$`)

// Discovered holds what Parse recovered. A field is absent when it holds its
// zero value; neither an empty account name nor port 0 is ever valid.
type Discovered struct {
	User  string
	Group string
	Port  int
}

func (d Discovered) Empty() bool {
	return d.User == "" && d.Group == "" && d.Port == 0
}

// Apply returns cfg with every present field of d substituted.
func (d Discovered) Apply(cfg models.Config) models.Config {
	user, group, port := cfg.ServiceUser, cfg.ServiceGroup, cfg.Port
	if d.User != "" {
		user = d.User
	}
	if d.Group != "" {
		group = d.Group
	}
	if d.Port != 0 {
		port = d.Port
	}
	return cfg.WithIdentity(user, group, port)
}

// Parse reads a unit file line by line:
//
//	line      = ws ( comment | section | directive | "" ) ws
//	comment   = ( "#" | ";" ) any
//	section   = "[" name "]"
//	directive = key ws* "=" ws* value
//
// Only User, Group and ExecStart are interpreted; keys are case-sensitive and
// the first non-empty occurrence wins. In ExecStart the port is the run of
// trailing digits in the value of --web.listen-address (or -web.listen-address),
// given either as "--web.listen-address=ADDR" or "--web.listen-address ADDR".
// Ports outside 1..65535 are ignored.
func Parse(r io.Reader) (Discovered, error) {
	var d Discovered

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '#' || line[0] == ';' || line[0] == '[' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch key {
		case "User":
			if d.User == "" {
				d.User = unquote(value)
			}
		case "Group":
			if d.Group == "" {
				d.Group = unquote(value)
			}
		case "ExecStart":
			if d.Port == 0 {
				d.Port = listenPort(value)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return Discovered{}, fmt.Errorf("read unit file: %w", err)
	}
	return d, nil
}

// Discover parses the unit file at path.
func Discover(path string) (Discovered, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Discovered{}, fmt.Errorf("%w: %s", ErrNoUnitFile, path)
	}
	if err != nil {
		return Discovered{}, err
	}
	defer f.Close()

	return Parse(f)
}

func listenPort(execStart string) int {
	fields := strings.Fields(execStart)
	for i, field := range fields {
		flag, addr, hasValue := strings.Cut(unquote(field), "=")
		if flag != ListenFlag && flag != ListenFlag[1:] {
			continue
		}
		if !hasValue {
			if i+1 >= len(fields) {
				return 0
			}
			addr = fields[i+1]
		}
		m := trailingDigits.FindStringSubmatch(unquote(addr))
		if m == nil {
			return 0
		}
		port, err := strconv.Atoi(m[1])
		if err != nil || port < 1 || port > 65535 {
			return 0
		}
		return port
	}
	return 0
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return strings.Trim(s, `"'`)
}
