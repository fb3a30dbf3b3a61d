package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestConfigYAMLLayout(t *testing.T) {
	config := Config{
		Engine: Engine{
			Server:   "myws-ondemand.sql.azuresynapse.net",
			Database: "lake",
			AuthMode: "sql",
			Username: "loader",
			Timeout:  30 * time.Second,
		},
		Output: Output{
			CreateRoot: "/tmp/create",
			DropRoot:   "/tmp/drop",
		},
		Extraction: Extraction{Mode: "balanced"},
		Log:        Log{Level: "info", Format: "console"},
	}

	data, err := yaml.Marshal(&config)
	assert.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "server: myws-ondemand.sql.azuresynapse.net")
	assert.Contains(t, out, "auth_mode: sql")
	assert.Contains(t, out, "create_root: /tmp/create")
	assert.Contains(t, out, "mode: balanced")
	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "application_client_id")
}

func TestViewQualifiedName(t *testing.T) {
	v := View{Schema: "dbo", Name: "trips"}
	assert.Equal(t, "dbo.trips", v.QualifiedName())
}

func TestRunReportCounts(t *testing.T) {
	report := &RunReport{
		Results: []ViewResult{
			{View: "dbo.a", Status: StatusWritten},
			{View: "dbo.b", Status: StatusFailed},
			{View: "dbo.c", Status: StatusWritten},
		},
	}

	assert.Equal(t, 2, report.Count(StatusWritten))
	assert.Equal(t, 1, report.Count(StatusFailed))
	assert.Equal(t, 0, report.Count(StatusSkipped))
	assert.True(t, report.Failed())

	assert.False(t, (&RunReport{}).Failed())
}
