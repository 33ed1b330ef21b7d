package spf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smp/internal/identifier"
	dErrors "smp/pkg/domain-errors"
)

var participant = identifier.Participant{Scheme: "iso6523-actorid-upis", Value: "9915:xxx"}

func ttl(v int) *int { return &v }

func TestNewPolicyValidation(t *testing.T) {
	passSeat := Term{Qualifier: QualifierPass, Mechanism: MechanismSeatID, Value: "AP001"}

	tests := []struct {
		name        string
		terms       []Term
		ttl         *int
		explanation string
		wantErr     bool
	}{
		{name: "ttl below range", terms: []Term{passSeat}, ttl: ttl(59), wantErr: true},
		{name: "ttl lower bound", terms: []Term{passSeat}, ttl: ttl(60)},
		{name: "ttl upper bound", terms: []Term{passSeat}, ttl: ttl(86400)},
		{name: "ttl above range", terms: []Term{passSeat}, ttl: ttl(86401), wantErr: true},
		{name: "ttl unset", terms: []Term{passSeat}},
		{name: "explanation at limit", terms: []Term{passSeat}, explanation: strings.Repeat("ü", 500)},
		{name: "explanation too long", terms: []Term{passSeat}, explanation: strings.Repeat("a", 501), wantErr: true},
		{name: "seatid without value", terms: []Term{{Qualifier: QualifierPass, Mechanism: MechanismSeatID}}, wantErr: true},
		{name: "certfp without value", terms: []Term{{Qualifier: QualifierFail, Mechanism: MechanismCertFP}}, wantErr: true},
		{name: "reference without value", terms: []Term{{Qualifier: QualifierNeutral, Mechanism: MechanismReference}}, wantErr: true},
		{name: "all without value", terms: []Term{{Qualifier: QualifierFail, Mechanism: MechanismAll}}},
		{name: "smp without value", terms: []Term{{Qualifier: QualifierPass, Mechanism: MechanismSMP}}},
		{name: "unknown mechanism", terms: []Term{{Qualifier: QualifierPass, Mechanism: "ip4"}}, wantErr: true},
		{name: "no terms", terms: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPolicy(participant, tt.terms, tt.ttl, tt.explanation)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, participant.URIEncoded(), p.ID)
		})
	}
}

func TestEffectiveTTL(t *testing.T) {
	p, err := NewPolicy(participant, nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, p.EffectiveTTL())

	p, err = NewPolicy(participant, nil, ttl(120), "")
	require.NoError(t, err)
	assert.Equal(t, 120, p.EffectiveTTL())
}

func TestRecord(t *testing.T) {
	seat, err := NewTerm(QualifierPass, MechanismSeatID, " AP001 ")
	require.NoError(t, err)
	all, err := NewTerm(QualifierFail, MechanismAll, "")
	require.NoError(t, err)
	soft, err := NewTerm(QualifierSoftFail, MechanismSMP, "")
	require.NoError(t, err)

	p, err := NewPolicy(participant, []Term{seat, soft, all}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, "v=spf4peppol +seatid:AP001 ~smp -all", p.Record())
}

func TestPolicyCloneDoesNotAlias(t *testing.T) {
	p, err := NewPolicy(participant, []Term{{Qualifier: QualifierPass, Mechanism: MechanismAll}}, ttl(300), "")
	require.NoError(t, err)
	c := p.Clone()
	*c.TTL = 900
	c.Terms[0].Qualifier = QualifierFail
	assert.Equal(t, 300, *p.TTL)
	assert.Equal(t, QualifierPass, p.Terms[0].Qualifier)
}
