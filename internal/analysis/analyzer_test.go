package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/spherical/pitchdeck-analyzer/internal/domain"
	"github.com/spherical/pitchdeck-analyzer/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const airbnbReply = `{
  "startup_name": "AirBed&Breakfast",
  "value_proposition": "Book rooms with locals rather than hotels",
  "number_of_founders": 3,
  "founders": ["Brian Chesky", "Joe Gebbia", "Nathan Blecharczyk"],
  "problem": "Price is an important concern for customers booking travel online",
  "solution": "A web platform where users can rent out their space",
  "target_market": "Budget travelers",
  "traction": "630,000 listings on couchsurfing.com",
  "funding": {"amount": "$600K", "round": "Angel"},
  "notable_points": ["Launched at SXSW", "Revenue model of 10% commission"],
  "summary": "Peer-to-peer lodging marketplace",
  "investor_remark": "Strong early-stage potential in a growing market."
}`

type fakeModel struct {
	reply  string
	err    error
	prompt llm.Prompt
}

func (m *fakeModel) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	m.prompt = p
	return m.reply, m.err
}

func TestAnalyze(t *testing.T) {
	model := &fakeModel{reply: airbnbReply}
	record, err := NewAnalyzer(model, nil).Analyze(context.Background(), "# Page 1\n\nAirbnb", "Focus on traction")
	require.NoError(t, err)

	assert.Equal(t, "AirBed&Breakfast", record.StartupName)
	require.NotNil(t, record.NumberOfFounders)
	assert.Equal(t, 3, *record.NumberOfFounders)
	assert.Equal(t, []string{"Brian Chesky", "Joe Gebbia", "Nathan Blecharczyk"}, record.Founders)
	require.NotNil(t, record.Funding)
	assert.Equal(t, "$600K", *record.Funding.Amount)
	assert.Equal(t, "Angel", *record.Funding.Round)
	assert.Nil(t, record.FounderLookups)

	assert.True(t, model.prompt.JSON)
	assert.Contains(t, model.prompt.Text, "Focus on traction")
	assert.Contains(t, model.prompt.Text, "# Page 1\n\nAirbnb")
	assert.Contains(t, model.prompt.Text, `"investor_remark"`)
}

func TestAnalyze_Errors(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		model      *fakeModel
	}{
		{"empty transcript", "  ", &fakeModel{reply: airbnbReply}},
		{"service failure", "text", &fakeModel{err: errors.New("HTTP 401")}},
		{"prose reply", "text", &fakeModel{reply: "I could not find a startup in this deck."}},
		{"unrelated object", "text", &fakeModel{reply: `{"answer": 42}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAnalyzer(tt.model, nil).Analyze(context.Background(), tt.transcript, "")
			require.Error(t, err)
			assert.True(t, domain.IsType(err, domain.ErrorTypeAnalysis))
		})
	}
}

func TestParseRecord_MissingFundingIsNull(t *testing.T) {
	record, missing, err := ParseRecord(`{"startup_name": "Acme", "founders": ["Ada Lovelace"], "summary": "Looms"}`)
	require.NoError(t, err)

	assert.Nil(t, record.Funding)
	assert.Nil(t, record.NumberOfFounders)
	assert.Equal(t, []string{}, record.NotablePoints)
	assert.Contains(t, missing, "funding")
	assert.NotContains(t, missing, "founders")
}

func TestParseRecord_EmptyFoundersFieldExists(t *testing.T) {
	record, _, err := ParseRecord(`{"startup_name": "Acme", "founders": null}`)
	require.NoError(t, err)
	assert.NotNil(t, record.Founders)
	assert.Empty(t, record.Founders)
}

func TestParseRecord_LenientCoercion(t *testing.T) {
	reply := "Here is the analysis:\n```json\n" + `{
  "startup_name": "Front",
  "number_of_founders": "2 founders",
  "founders": [{"name": "Mathilde Collin"}, "Laurent Perrin"],
  "funding": "$10M Series A",
  "notable_points": "YC alumni",
  "traction": ["2,000 customers", "$5M ARR"]
}` + "\n```\nSolid team in a crowded space."

	record, _, err := ParseRecord(reply)
	require.NoError(t, err)

	require.NotNil(t, record.NumberOfFounders)
	assert.Equal(t, 2, *record.NumberOfFounders)
	assert.Equal(t, []string{"Mathilde Collin", "Laurent Perrin"}, record.Founders)
	require.NotNil(t, record.Funding)
	assert.Equal(t, "$10M Series A", *record.Funding.Amount)
	assert.Nil(t, record.Funding.Round)
	assert.Equal(t, []string{"YC alumni"}, record.NotablePoints)
	assert.Equal(t, "2,000 customers; $5M ARR", record.Traction)
	assert.Equal(t, "Solid team in a crowded space.", record.InvestorRemark)
}

func TestParseRecord_FundingWithoutValues(t *testing.T) {
	record, _, err := ParseRecord(`{"startup_name": "Acme", "funding": {"amount": null, "round": null}}`)
	require.NoError(t, err)
	assert.Nil(t, record.Funding)
}

func TestParseRecord_BracesInSurroundingProse(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		remark string
	}{
		{
			name:   "labelled remark with braces after the object",
			reply:  "{\"startup_name\":\"Airbnb\",\"founders\":[]}\nInvestor remark: strong team {seed stage}",
			remark: "strong team {seed stage}",
		},
		{
			name:   "braces before the object",
			reply:  "Schema {as requested}:\n```json\n{\"startup_name\":\"Airbnb\",\"founders\":[\"Brian Chesky\"]}\n```",
			remark: "",
		},
		{
			name:   "example object before the record",
			reply:  "Format was {\"note\": 1}. Result:\n{\"startup_name\":\"Airbnb\",\"founders\":[]}\n",
			remark: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, _, err := ParseRecord(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, "Airbnb", record.StartupName)
			assert.Equal(t, tt.remark, record.InvestorRemark)
		})
	}
}

func TestParseRecord_TrailingProseIsNotAlwaysARemark(t *testing.T) {
	tests := []struct {
		trailing string
		want     string
	}{
		{"Solid team in a crowded space.", "Solid team in a crowded space."},
		{"\"🚀 Strong early-stage potential in a growing market.\"", "🚀 Strong early-stage potential in a growing market."},
		{"Let me know if you need anything else!", ""},
		{"Would you like a deeper market analysis?", ""},
		{"Strong team.\nI hope this helps.", ""},
		{"Notes follow.\nRemark: capital efficient", "capital efficient"},
	}

	for _, tt := range tests {
		t.Run(tt.trailing, func(t *testing.T) {
			record, _, err := ParseRecord(`{"startup_name": "Acme"}` + "\n" + tt.trailing)
			require.NoError(t, err)
			assert.Equal(t, tt.want, record.InvestorRemark)
		})
	}
}
