package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pitabwire/fluent"
)

type CLISuite struct {
	suite.Suite

	configFile string
	page       string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	dir := s.T().TempDir()
	s.write(filepath.Join(dir, "locales", "en", "main.ftl"), "title = Welcome\ngreeting = Hello ${name}, you are ${age}")
	s.write(filepath.Join(dir, "locales", "sw", "main.ftl"), "title = Karibu")

	s.configFile = filepath.Join(dir, "fluent.yaml")
	s.write(s.configFile, "l10n_resources_url: file://"+filepath.Join(dir, "locales")+"\n"+
		"l10n_default_locale: en\n"+
		"l10n_available_locales: [sw, en]\n"+
		"l10n_resource_ids: [main.ftl]\n"+
		"cache_uri: mem://\n")

	s.page = filepath.Join(dir, "index.html")
	s.write(s.page, `<html><head></head><body><h1 data-l10n-id="title"></h1></body></html>`)
}

func (s *CLISuite) write(path, content string) {
	s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o750))
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600))
}

func (s *CLISuite) TestFormat() {
	var out bytes.Buffer
	err := cmdFormat([]string{"--config", s.configFile, "greeting", "name=Ann", "age=30"}, &out)
	s.Require().NoError(err)
	s.Equal("Hello Ann, you are 30\n", out.String())

	out.Reset()
	err = cmdFormat([]string{"--config", s.configFile, "--lang", "sw", "title"}, &out)
	s.Require().NoError(err)
	s.Equal("Karibu\n", out.String())

	s.Require().Error(cmdFormat([]string{"--config", s.configFile}, &out))
	s.Require().Error(cmdFormat([]string{"--config", s.configFile, "title", "novalue"}, &out))
}

func (s *CLISuite) TestTranslate() {
	var out bytes.Buffer
	err := cmdTranslate([]string{"--config", s.configFile, "--lang", "sw", s.page}, &out)
	s.Require().NoError(err)
	s.Contains(out.String(), `<h1 data-l10n-id="title">Karibu</h1>`)

	s.Require().Error(cmdTranslate([]string{"--config", s.configFile}, &out))
	s.Require().Error(cmdTranslate([]string{"--config", s.configFile, s.page + ".missing"}, &out))
}

func (s *CLISuite) TestLocales() {
	var out bytes.Buffer
	s.Require().NoError(cmdLocales([]string{"--config", s.configFile}, &out))
	s.Equal("en\nsw\n", out.String())
}

func (s *CLISuite) TestNotify() {
	err := cmdNotify([]string{"--config", s.configFile, "sw", "main.ftl"})
	s.Require().ErrorIs(err, fluent.ErrNoResourceUpdates)

	withUpdates := filepath.Join(filepath.Dir(s.configFile), "updates.yaml")
	cfg, readErr := os.ReadFile(s.configFile)
	s.Require().NoError(readErr)
	s.write(withUpdates, string(cfg)+"l10n_updates_url: mem://cli-updates\n")

	s.Require().NoError(cmdNotify([]string{"--config", withUpdates, "sw", "main.ftl"}))
	s.Require().Error(cmdNotify([]string{"--config", withUpdates, "sw"}))
}

func (s *CLISuite) TestParseMessageArgs() {
	args, err := parseMessageArgs([]string{"n=3", "ratio=0.5", "name=Ann", "empty="})
	s.Require().NoError(err)
	s.Equal(map[string]any{"n": int64(3), "ratio": 0.5, "name": "Ann", "empty": ""}, args)

	args, err = parseMessageArgs(nil)
	s.Require().NoError(err)
	s.Nil(args)

	_, err = parseMessageArgs([]string{"=x"})
	s.Require().Error(err)
}

func (s *CLISuite) TestSplitList() {
	s.Equal([]string{"sw", "en"}, splitList(" sw, ,en "))
	s.Nil(splitList(""))
}
