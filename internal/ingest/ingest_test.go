package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVSource(t *testing.T) {
	data := "\ufeffCompany_Clean , Domain,twitter_url\n" +
		"3M Company,3m.com,https://twitter.com/3m\n" +
		"\"Acme\nHoldings\",acme.com\n" +
		"Zeta Labs,,\n"

	src, err := NewCSVSource(strings.NewReader(data), DatasetContacts)
	require.NoError(t, err)
	assert.Equal(t, []string{"company_clean", "domain", "twitter_url"}, src.Header())

	rows, err := Collect(src)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 3, rows[1].Line)
	assert.Equal(t, 5, rows[2].Line, "line numbers follow physical lines across quoted newlines")

	// short rows read missing columns as empty
	assert.Equal(t, "", rows[1].Values["twitter_url"])
	assert.Equal(t, DatasetContacts, rows[2].Dataset)

	contact := AsContact(rows[0])
	assert.Equal(t, "3M Company", contact.Company)
	assert.Equal(t, map[string]string{"domain": "3m.com", "twitter_url": "https://twitter.com/3m"},
		contact.Contact([]string{"domain", "twitter_url", "facebook_url"}))
}

func TestCSVSourceEmpty(t *testing.T) {
	_, err := NewCSVSource(strings.NewReader(""), DatasetContacts)
	assert.Error(t, err)
}

func TestOpenCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subsidiaries.csv")
	require.NoError(t, os.WriteFile(path, []byte("company_name,subsidiaries\nAcme Corp,Acme Widgets; Roadrunner Supply\n"), 0o644))

	src, err := OpenCSV(path, DatasetSubsidiaries)
	require.NoError(t, err)
	defer src.Close()

	rows, err := Collect(src)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"Acme Widgets", "Roadrunner Supply"}, AsSubsidiary(rows[0]).Subsidiaries)

	_, err = OpenCSV(filepath.Join(t.TempDir(), "missing.csv"), DatasetContacts)
	assert.Error(t, err)
}

func TestAsSubsidiary(t *testing.T) {
	tests := []struct {
		name     string
		values   map[string]string
		parent   string
		subs     []string
		declared int
		marked   bool
	}{
		{
			name:   "delimited list",
			values: map[string]string{"company_name": "Acme Corp", "subsidiaries": "Acme Widgets | Acme Labs;;"},
			parent: "Acme Corp",
			subs:   []string{"Acme Widgets", "Acme Labs"},
		},
		{
			name:   "clean name preferred over raw",
			values: map[string]string{"parent_name": "Zeta Group", "subsidiary_name_clean": "Zeta Labs", "subsidiary_name_raw": "ZETA LABS LTD"},
			parent: "Zeta Group",
			subs:   []string{"Zeta Labs"},
		},
		{
			name:     "declared but empty",
			values:   map[string]string{"company_name": "Acme Corp", "subsidiary_count": "3", "has_subsidiaries": "Yes"},
			parent:   "Acme Corp",
			declared: 3,
			marked:   true,
		},
		{
			name:     "unparseable count",
			values:   map[string]string{"company_name": "Acme Corp", "subsidiary_count": "many", "has_subsidiaries": "no"},
			parent:   "Acme Corp",
			declared: 0,
		},
		{
			name:     "float count",
			values:   map[string]string{"company_name": "Acme Corp", "subsidiary_count": "2.0"},
			parent:   "Acme Corp",
			declared: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := AsSubsidiary(Row{Dataset: DatasetSubsidiaries, Line: 2, Values: tt.values})
			assert.Equal(t, tt.parent, s.Parent)
			assert.Equal(t, tt.subs, s.Subsidiaries)
			assert.Equal(t, tt.declared, s.DeclaredCount)
			assert.Equal(t, tt.marked, s.Marked)
		})
	}
}

func TestCollectNil(t *testing.T) {
	rows, err := Collect(nil)
	assert.NoError(t, err)
	assert.Nil(t, rows)

	rows, err = Collect(NewSliceSource(Row{Line: 2}, Row{Line: 3}))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
