package converter

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ginjaninja78/contact-formatter/internal/config"
	"github.com/ginjaninja78/contact-formatter/internal/types"
	"github.com/ginjaninja78/contact-formatter/internal/xlsx"
)

const referenceCSV = "first_name,last_name,middle_name,email,phone,street_address,city,state,zip_code,groups,notes\n" +
	"Sample,Row,,ignored@example.com,,,,,,,\n"

const contactsCSV = "First Name,Last Name,Email 1,Phone Number 1,Mailing Address,Mailing City,Mailing State/Province,Mailing Postal Code,Groups,Company\n" +
	"Jane,Doe,jane@example.com,555-0100,1 Main St,Springfield,IL,62701,\"Family,Friends\",Acme\n"

const formattedCSV = "first_name,last_name,middle_name,email,phone,street_address,city,state,zip_code,groups,notes\n" +
	"Jane,Doe,,jane@example.com,555-0100,1 Main St,Springfield,IL,62701,Family;Friends,Company: Acme\n"

type observation struct {
	result string
	rows   int
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []observation
}

func (f *fakeRecorder) ObserveConversion(result string, rows int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, observation{result, rows})
}

func contactsRequest() Request {
	return Request{
		Input:     Document{Name: "contacts.csv", Data: []byte(contactsCSV)},
		Reference: Document{Name: "reference.csv", Data: []byte(referenceCSV)},
	}
}

func TestConvert_CSV(t *testing.T) {
	rec := &fakeRecorder{}
	conv := New(Options{Recorder: rec})

	result := conv.Convert(context.Background(), contactsRequest())
	require.NoError(t, result.Error)
	require.True(t, result.Success)

	assert.Equal(t, formattedCSV, string(result.Output))
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)
	assert.Equal(t, "formatted_contacts.csv", result.FileName)
	assert.Equal(t, 1, result.Stats.Rows)
	assert.Equal(t, 10, result.Stats.SourceColumns)
	assert.Equal(t, 11, result.Stats.TargetColumns)
	assert.Equal(t, 1, result.Stats.NotesFilled)
	assert.Equal(t, []observation{{"success", 1}}, rec.seen)
}

func TestConvert_XLSXOutput(t *testing.T) {
	req := contactsRequest()
	req.Format = "xlsx"

	result := New(Options{}).Convert(context.Background(), req)
	require.NoError(t, result.Error)
	assert.Equal(t, xlsx.ContentType, result.ContentType)
	assert.Equal(t, "formatted_contacts.xlsx", result.FileName)

	rs, err := xlsx.Read(bytes.NewReader(result.Output), result.FileName)
	require.NoError(t, err)
	assert.Equal(t, "Family;Friends", rs.Get(0, "groups"))
	assert.Equal(t, "Company: Acme", rs.Get(0, "notes"))
}

func TestConvert_XLSXInputAndReference(t *testing.T) {
	source := types.NewRecordSet("First Name", "Last Name", "Email 1", "Phone Number 1", "Mailing Address",
		"Mailing City", "Mailing State/Province", "Mailing Postal Code", "Groups", "Custom1")
	require.NoError(t, source.AppendRow("Jane", "Doe", "", "", "", "", "", "", "A,B", "x"))
	input, err := xlsx.Marshal(source)
	require.NoError(t, err)

	reference, err := xlsx.Marshal(types.NewRecordSet("email", "first_name", "groups", "notes"))
	require.NoError(t, err)

	result := New(Options{}).Convert(context.Background(), Request{
		Input:     Document{Name: "upload", Data: input},
		Reference: Document{Name: "layout.xlsx", Data: reference},
	})
	require.NoError(t, result.Error)
	assert.Equal(t, "email,first_name,groups,notes\n,Jane,A;B,Custom1: x\n", string(result.Output))
}

func TestConvert_Failures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		kind   string
		check  func(*testing.T, error)
	}{
		{
			name:   "empty input",
			mutate: func(r *Request) { r.Input.Data = nil },
			kind:   types.KindInvalidInput,
		},
		{
			name:   "empty reference",
			mutate: func(r *Request) { r.Reference.Data = nil },
			kind:   types.KindInvalidInput,
		},
		{
			name:   "header only input",
			mutate: func(r *Request) { r.Input.Data = []byte("First Name,Email 1\n") },
			kind:   types.KindInvalidInput,
		},
		{
			name:   "malformed input",
			mutate: func(r *Request) { r.Input.Data = []byte("a,b\n1,2,3\n") },
			kind:   types.KindParse,
		},
		{
			name: "missing mapped column",
			mutate: func(r *Request) {
				r.Input.Data = []byte("First Name,Last Name\nJane,Doe\n")
			},
			kind: types.KindSchemaMismatch,
			check: func(t *testing.T, err error) {
				var mismatch *types.SchemaMismatchError
				require.True(t, errors.As(err, &mismatch))
				assert.Equal(t, "Email 1", mismatch.Column())
			},
		},
		{
			name:   "unknown format",
			mutate: func(r *Request) { r.Format = "pdf" },
			kind:   types.KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecorder{}
			req := contactsRequest()
			tt.mutate(&req)

			result := New(Options{Recorder: rec}).Convert(context.Background(), req)
			require.False(t, result.Success)
			require.Error(t, result.Error)
			assert.Nil(t, result.Output)
			assert.Equal(t, tt.kind, types.ErrorKind(result.Error))
			assert.Equal(t, []observation{{tt.kind, 0}}, rec.seen)
			if tt.check != nil {
				tt.check(t, result.Error)
			}
		})
	}
}

func TestConvert_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(Options{}).Convert(ctx, contactsRequest())
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestConvert_LogsOutcome(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	conv := New(Options{Logger: zap.New(core)})

	conv.Convert(context.Background(), contactsRequest())
	require.Equal(t, 1, logs.FilterMessage("Conversion complete").Len())

	req := contactsRequest()
	req.Input.Data = nil
	conv.Convert(context.Background(), req)
	failed := logs.FilterMessage("Conversion failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, types.KindInvalidInput, failed[0].ContextMap()["kind"])
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "xlsx"
	cfg.Notes.Separator = " / "

	conv := NewFromConfig(cfg, nil, nil)
	assert.Equal(t, config.FormatXLSX, conv.format)
	assert.Equal(t, " / ", conv.transformer.notes.Separator)
	assert.Len(t, conv.mapping, len(types.DefaultColumnMapping()))
}

func TestConvert_ConcurrentUse(t *testing.T) {
	conv := New(Options{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := conv.Convert(context.Background(), contactsRequest())
			assert.Equal(t, formattedCSV, string(result.Output))
		}()
	}
	wg.Wait()
}
