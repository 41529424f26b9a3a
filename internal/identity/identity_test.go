package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dennisdiepolder/monti/outreach/internal/types"
)

func TestNameKey(t *testing.T) {
	assert.Equal(t, "yamadataro", NameKey("Ｙａｍａｄａ　Taro"))
	assert.Equal(t, "山田太郎", NameKey(" 山田 太郎 "))
	assert.Equal(t, NameKey("山田 太郎"), NameKey("山田　太郎"))
	assert.Empty(t, NameKey(""))
}

func TestPhoneKey(t *testing.T) {
	assert.Equal(t, "+819012345678", PhoneKey("090-1234-5678", "JP"))
	assert.Equal(t, "+819012345678", PhoneKey("+81 90-1234-5678", ""))
	assert.Equal(t, "123", PhoneKey("1-2-3", "JP"))
	assert.Empty(t, PhoneKey("  ", "JP"))
}

func testResolver() *Resolver {
	return NewResolver(DefaultRegion, []types.Candidate{
		{ID: 7, Name: "山田 太郎", Phone: "090-1234-5678", Email: "Taro@Example.com"},
		{ID: 8, Name: "山田", Phone: "03-1234-5678"},
		{ID: 9, Name: "山田 太郎"},
		{ID: 0, Name: "ignored"},
	})
}

func TestResolver(t *testing.T) {
	r := testResolver()

	assert.Equal(t, int64(7), r.ResolveByName("山田 太郎"))
	assert.Equal(t, int64(7), r.ResolveByName("山田　太郎"))
	assert.Zero(t, r.ResolveByName("ignored"))

	// longest contained name wins
	assert.Equal(t, int64(7), r.ResolveByTarget("山田太郎様"))
	assert.Equal(t, int64(8), r.ResolveByTarget("山田商事"))
	assert.Zero(t, r.ResolveByTarget("佐藤"))

	assert.Equal(t, int64(7), r.ResolvePhone("+819012345678"))
	assert.Equal(t, int64(7), r.ResolveEmail(" taro@example.com"))
	assert.Equal(t, 2, r.Size())
}

func TestResolveCandidateIDOrder(t *testing.T) {
	r := testResolver()

	assert.Equal(t, int64(99), r.ResolveCandidateID(types.CallLogEntry{CandidateID: 99, CandidateName: "山田 太郎"}))
	assert.Equal(t, int64(7), r.ResolveCandidateID(types.CallLogEntry{CandidateName: "不明", Phone: "09012345678"}))
	assert.Equal(t, int64(7), r.ResolveCandidateID(types.CallLogEntry{Email: "TARO@example.com"}))

	var nilResolver *Resolver
	assert.Zero(t, nilResolver.ResolveCandidateID(types.CallLogEntry{CandidateName: "山田"}))
}

func TestHydrate(t *testing.T) {
	r := testResolver()
	in := []types.CallLogEntry{{CandidateName: "山田"}, {CandidateID: 3, CandidateName: "山田"}}
	out := r.Hydrate(in)
	assert.Equal(t, int64(8), out[0].CandidateID)
	assert.Equal(t, int64(3), out[1].CandidateID)
	assert.Zero(t, in[0].CandidateID)
}

func TestStageKey(t *testing.T) {
	tests := []struct {
		name  string
		entry types.CallLogEntry
		want  string
	}{
		{"id", types.CallLogEntry{CandidateID: 5, CandidateName: "x"}, "id:5"},
		{"name", types.CallLogEntry{CandidateName: "Ｔａｒｏ", Phone: "1"}, "name:taro"},
		{"phone", types.CallLogEntry{Phone: "090-1234-5678"}, "tel:+819012345678"},
		{"phone with country code", types.CallLogEntry{Phone: "+81 90-1234-5678"}, "tel:+819012345678"},
		{"unparseable phone", types.CallLogEntry{Phone: "090-1"}, "tel:0901"},
		{"email", types.CallLogEntry{Email: " A@B.jp "}, "email:a@b.jp"},
		{"log id", types.CallLogEntry{ID: "L1"}, "log:L1"},
		{"fallback", types.CallLogEntry{Route: types.RoutePhone, Employee: "佐藤", Datetime: "d", ResultCode: types.ResultSet}, "fallback:tel||佐藤|d|set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StageKey(tt.entry))
		})
	}
}
