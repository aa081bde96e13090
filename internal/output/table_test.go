package output_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shadowlend/shadowlend/internal/output"
)

func TestTable_Render(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable("CODE", "NAME")
	tbl.AddRow("6000", "InvalidLTV")
	tbl.AddRow("6003", "Unauthorized")

	want := "CODE  NAME\n" +
		"----  ------------\n" +
		"6000  InvalidLTV\n" +
		"6003  Unauthorized\n"
	assert.Equal(t, want, tbl.String())
}

func TestTable_RightAlignAndNoHeader(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable("ASSET", "AMOUNT")
	tbl.SetAlign(1, output.AlignRight)
	tbl.SetNoHeader(true)
	tbl.AddRow("SOL", "1.5")
	tbl.AddRow("USDC", "250.000000")

	want := "SOL" + "          " + "1.5\n" +
		"USDC  250.000000\n"
	assert.Equal(t, want, tbl.String())
}

func TestTable_RaggedRows(t *testing.T) {
	t.Parallel()
	tbl := output.NewTable("A")
	tbl.AddRow("x", "extra")

	assert.Equal(t, "A\n-  -----\nx  extra\n", tbl.String())
}

func TestTable_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, output.NewTable().String())
}
