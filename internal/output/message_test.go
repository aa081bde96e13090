package output_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadowlend/shadowlend/internal/output"
)

func TestMessages(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	output.Infof(&buf, "cluster %s", "devnet")
	output.Warnf(&buf, "retrying in %dms", 500)
	output.Successf(&buf, "connected %s", "abc")

	assert.Equal(t, "ℹ️  cluster devnet\n⚠️  retrying in 500ms\n✅ connected abc\n", buf.String())
}
