// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	errExpectedPointerToStruct = errors.New("expected a pointer to a struct")
	errUnsupportedFieldType    = errors.New("unsupported field type")
)

var durationType = reflect.TypeFor[time.Duration]()

// envTag is a parsed `env:"NAME[,overwrite]"` struct tag. Without overwrite,
// the variable only fills a field that is still zero.
type envTag struct {
	name      string
	overwrite bool
}

func parseEnvTag(tag string) envTag {
	name, opts, _ := strings.Cut(tag, ",")

	return envTag{name: name, overwrite: opts == "overwrite"}
}

// EnvError reports an environment variable whose value does not fit its field.
type EnvError struct {
	Var   string
	Field string
	Value string
	Err   error
}

func (e *EnvError) Error() string {
	return fmt.Sprintf("%s=%q (for %s): %v", e.Var, e.Value, e.Field, e.Err)
}

func (e *EnvError) Unwrap() error {
	return e.Err
}

// readEnv fills the env-tagged fields of the struct target points to, descending
// into nested structs.
func readEnv(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("%w, got %T", errExpectedPointerToStruct, target)
	}

	return readEnvStruct(v.Elem())
}

func readEnvStruct(v reflect.Value) error {
	t := v.Type()

	for i := range v.NumField() {
		field, sf := v.Field(i), t.Field(i)

		rawTag, tagged := sf.Tag.Lookup("env")
		if !tagged {
			if field.Kind() == reflect.Struct {
				if err := readEnvStruct(field); err != nil {
					return err
				}
			}

			continue
		}

		tag := parseEnvTag(rawTag)

		raw, ok := os.LookupEnv(tag.name)
		if !ok || !field.CanSet() || (!tag.overwrite && !field.IsZero()) {
			continue
		}

		parsed, err := parseEnvValue(field.Type(), raw)
		if err != nil {
			return &EnvError{Var: tag.name, Field: sf.Name, Value: raw, Err: err}
		}

		field.Set(parsed)
	}

	return nil
}

// parseEnvValue converts raw to a value of type t. Slices are
// comma-separated, with blank items dropped.
func parseEnvValue(t reflect.Type, raw string) (reflect.Value, error) {
	out := reflect.New(t).Elem()

	switch {
	case t == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return out, err
		}

		out.SetInt(int64(d))
	case t.Kind() == reflect.String:
		out.SetString(raw)
	case out.CanInt():
		n, err := strconv.ParseInt(raw, 10, t.Bits())
		if err != nil {
			return out, err
		}

		out.SetInt(n)
	case out.CanUint():
		n, err := strconv.ParseUint(raw, 10, t.Bits())
		if err != nil {
			return out, err
		}

		out.SetUint(n)
	case out.CanFloat():
		f, err := strconv.ParseFloat(raw, t.Bits())
		if err != nil {
			return out, err
		}

		out.SetFloat(f)
	case t.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return out, err
		}

		out.SetBool(b)
	case t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.String:
		items := []string{}

		for item := range strings.SplitSeq(raw, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}

		out.Set(reflect.ValueOf(items).Convert(t))
	default:
		return out, fmt.Errorf("%w: %s", errUnsupportedFieldType, t)
	}

	return out, nil
}

// useDotEnv exports the variables of the first .env file found in the
// working directory or next to the binary. Variables already present in the
// environment win over the file. A missing file is not an error.
func useDotEnv() error {
	var dirs []string

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	} else {
		log.Warn().Err(err).Msg("Could not get current working directory")
	}

	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")

		data, err := os.ReadFile(path) // #nosec G304 -- fixed file name in known directories
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}

		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Could not read .env file")

			return nil
		}

		return exportDotEnv(path, data)
	}

	log.Info().Msg("No .env file found, skipping")

	return nil
}

func exportDotEnv(path string, data []byte) error {
	vars, badLines := parseDotEnv(data)

	for _, line := range badLines {
		log.Warn().
			Str("path", path).
			Int("line", line).
			Msg("Invalid line in .env file")
	}

	for key, value := range vars {
		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("setting %s from %s: %w", key, path, err)
		}
	}

	log.Info().
		Str("path", path).
		Int("variables", len(vars)).
		Msg("Loaded configuration from .env file")

	return nil
}

// parseDotEnv reads KEY=value lines. Blank lines and # comments are skipped,
// an "export " prefix is allowed, and one pair of matching quotes around the
// value is removed. It also returns the 1-based numbers of malformed lines.
func parseDotEnv(data []byte) (map[string]string, []int) {
	vars := make(map[string]string)

	var badLines []int

	scanner := bufio.NewScanner(bytes.NewReader(data))

	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, found := strings.Cut(line, "=")
		key = strings.TrimSpace(key)

		if !found || key == "" {
			badLines = append(badLines, lineNumber)

			continue
		}

		vars[key] = unquote(strings.TrimSpace(value))
	}

	return vars, badLines
}

func unquote(value string) string {
	if len(value) >= 2 && value[0] == value[len(value)-1] && (value[0] == '"' || value[0] == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}
