package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnSet_PreservesInsertionOrder(t *testing.T) {
	s := NewColumnSet("b", "a", "c", "a")

	assert.Equal(t, []string{"b", "a", "c"}, s.Names())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Index("a"))
	assert.Equal(t, -1, s.Index("z"))
	assert.True(t, s.Has("c"))
	assert.False(t, s.Add("b"))
}

func TestColumnSet_DifferenceKeepsReceiverOrder(t *testing.T) {
	all := NewColumnSet("First Name", "Company", "Last Name", "Birthday", "Groups")
	mapped := NewColumnSet("Groups", "First Name", "Last Name")

	diff := all.Difference(mapped)

	assert.Equal(t, []string{"Company", "Birthday"}, diff.Names())
	assert.Equal(t, all.Names(), all.Difference(nil).Names())
}

func TestColumnSet_NamesIsACopy(t *testing.T) {
	s := NewColumnSet("a", "b")
	names := s.Names()
	names[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, s.Names())
}

func TestRecordSet_AppendAndGet(t *testing.T) {
	rs := NewRecordSet("name", "city")
	require.NoError(t, rs.AppendRow("Jane", "NYC"))
	require.Error(t, rs.AppendRow("only-one"))

	assert.Equal(t, 1, rs.Len())
	assert.Equal(t, "NYC", rs.Get(0, "city"))
	assert.Equal(t, "", rs.Get(0, "missing"))
	assert.Equal(t, map[string]string{"name": "Jane", "city": "NYC"}, rs.Record(0))
}

func TestDefaultColumnMapping_ContractKeys(t *testing.T) {
	m := DefaultColumnMapping()

	assert.Equal(t, []string{
		"First Name", "Last Name", "Email 1", "Phone Number 1", "Mailing Address",
		"Mailing City", "Mailing State/Province", "Mailing Postal Code", "Groups",
	}, m.Sources().Names())
	assert.Equal(t, []string{
		"first_name", "last_name", "email", "phone", "street_address",
		"city", "state", "zip_code", "groups",
	}, m.Targets().Names())
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&InvalidInputError{Input: "input", Reason: "empty"}, KindInvalidInput},
		{fmt.Errorf("wrapped: %w", &ParseError{Input: "a.csv", Line: 3, Err: errors.New("bad")}), KindParse},
		{&SchemaMismatchError{Missing: []string{"Email 1"}}, KindSchemaMismatch},
		{errors.New("boom"), KindInternal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorKind(tc.err), tc.err.Error())
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, `source is missing mapped column "Email 1"`,
		(&SchemaMismatchError{Missing: []string{"Email 1"}}).Error())
	assert.Equal(t, `source is missing mapped columns "Email 1", "Groups"`,
		(&SchemaMismatchError{Missing: []string{"Email 1", "Groups"}}).Error())
	assert.Equal(t, "failed to parse a.csv at line 4: bad",
		(&ParseError{Input: "a.csv", Line: 4, Err: errors.New("bad")}).Error())

	cause := errors.New("bad")
	assert.ErrorIs(t, &ParseError{Input: "a.csv", Err: cause}, cause)
}
