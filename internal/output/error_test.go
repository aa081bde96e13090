package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/output"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, output.FormatError(&buf, nil, output.FormatText))
	assert.Empty(t, buf.String())
}

func TestFormatError_GenericJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	require.NoError(t, output.FormatError(&buf, errors.New("socket closed"), output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, "GENERAL_ERROR", result.Error.Code)
	assert.Equal(t, "socket closed", result.Error.Message)
	assert.Equal(t, lenderr.ExitGeneral, result.Error.ExitCode)
}

func TestFormatError_LendErrorJSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	err := lenderr.WithDetails(lenderr.ErrInvalidBasisPoints, map[string]string{"field": "ltv", "value": "12000"})
	err = lenderr.WithSuggestion(err, "use a value between 0 and 10000")

	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var result output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, lenderr.ErrInvalidBasisPoints.Code, result.Error.Code)
	assert.Equal(t, "ltv", result.Error.Details["field"])
	assert.Equal(t, "use a value between 0 and 10000", result.Error.Suggestion)
	assert.Equal(t, lenderr.ExitInput, result.Error.ExitCode)
}

func TestFormatError_TextSortsDetails(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	err := lenderr.WithDetails(lenderr.ErrMissingAccount, map[string]string{
		"zeta":    "last",
		"account": "first",
		"mid":     "middle",
	})
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	text := buf.String()
	assert.Contains(t, text, "Error: "+lenderr.ErrMissingAccount.Message)
	first := bytes.Index(buf.Bytes(), []byte("account: first"))
	middle := bytes.Index(buf.Bytes(), []byte("mid: middle"))
	last := bytes.Index(buf.Bytes(), []byte("zeta: last"))
	assert.True(t, first < middle && middle < last, text)
	assert.NotContains(t, text, "Suggestion:")
}

func TestFormatError_WrappedCause(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	err := lenderr.Wrap(fmt.Errorf("dial tcp: refused"), "probing devnet")
	require.NoError(t, output.FormatError(&buf, err, output.FormatText))

	assert.Contains(t, buf.String(), "Error: probing devnet")
	assert.Contains(t, buf.String(), "Cause: dial tcp: refused")
}

func TestDescribe_FindsLendErrorInChain(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("connect: %w", lenderr.ErrWalletNotInstalled)
	d := output.Describe(err)

	assert.Equal(t, lenderr.ErrWalletNotInstalled.Code, d.Code)
	assert.Equal(t, lenderr.ErrWalletNotInstalled.ExitCode, d.ExitCode)
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, output.FormatSuccess(&text, "wallet disconnected", output.FormatText))
	assert.Equal(t, "wallet disconnected\n", text.String())

	var js bytes.Buffer
	require.NoError(t, output.FormatSuccess(&js, "wallet disconnected", output.FormatJSON))
	var result map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &result))
	assert.Equal(t, "success", result["status"])
	assert.Equal(t, "wallet disconnected", result["message"])
}
