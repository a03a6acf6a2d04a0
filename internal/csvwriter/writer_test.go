package csvwriter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/contact-formatter/internal/types"
)

func TestMarshal_QuotesWhereNeeded(t *testing.T) {
	rs := types.NewRecordSet("first_name", "groups", "notes")
	require.NoError(t, rs.AppendRow("Jane", "A;B", "Company: Acme, Title: CEO"))
	require.NoError(t, rs.AppendRow("John", "", "said \"hi\"\nthen left"))

	out, err := Marshal(rs)
	require.NoError(t, err)

	assert.Equal(t,
		"first_name,groups,notes\n"+
			"Jane,A;B,\"Company: Acme, Title: CEO\"\n"+
			"John,,\"said \"\"hi\"\"\nthen left\"\n",
		string(out))
}

func TestMarshal_HeaderOnly(t *testing.T) {
	out, err := Marshal(types.NewRecordSet("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(out))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWrite_PropagatesErrors(t *testing.T) {
	rs := types.NewRecordSet("a")
	require.NoError(t, rs.AppendRow("1"))

	err := Write(failingWriter{}, rs)
	assert.ErrorContains(t, err, "disk full")
}
