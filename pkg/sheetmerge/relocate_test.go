package sheetmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelocate_QuotedQualifier(t *testing.T) {
	got, changed := Relocate("='OldName'!B2", map[string]string{"OldName": "Proc1_DATAIN"})
	assert.True(t, changed)
	assert.Equal(t, "='Proc1_DATAIN'!B2", got)
}

func TestRelocate_UnquotedQualifier(t *testing.T) {
	renames := map[string]string{"OldName": "Proc1_DATAIN"}

	got, changed := Relocate("OldName!B2+OldName!C3", renames)
	assert.True(t, changed)
	assert.Equal(t, "Proc1_DATAIN!B2+Proc1_DATAIN!C3", got)

	got, _ = Relocate("SUM(OldName!A1:A9)*2", renames)
	assert.Equal(t, "SUM(Proc1_DATAIN!A1:A9)*2", got)
}

func TestRelocate_QuotesWhenNewNameNeedsIt(t *testing.T) {
	got, changed := Relocate("Data!A1", map[string]string{"Data": "Proc 1 Data"})
	assert.True(t, changed)
	assert.Equal(t, "'Proc 1 Data'!A1", got)

	got, _ = Relocate("Data!A1", map[string]string{"Data": "O'Neil"})
	assert.Equal(t, "'O''Neil'!A1", got)
}

func TestRelocate_LeavesOtherText(t *testing.T) {
	renames := map[string]string{"Old": "New"}

	// different sheet whose name ends with the old one
	got, changed := Relocate("XOld!A1", renames)
	assert.False(t, changed)
	assert.Equal(t, "XOld!A1", got)

	// string literal that looks like a qualifier
	got, changed = Relocate(`IF(Old!A1>0,"Old!A1","")`, renames)
	assert.True(t, changed)
	assert.Equal(t, `IF(New!A1>0,"Old!A1","")`, got)

	// no reference at all
	got, changed = Relocate("A1+B1", renames)
	assert.False(t, changed)
	assert.Equal(t, "A1+B1", got)
}

func TestRelocate_IndirectReferenceText(t *testing.T) {
	renames := map[string]string{"DATAIN": "Proc1_DATAIN", "Data": "Proc 1 Data"}

	got, changed := Relocate(`INDIRECT("'DATAIN'!B2")`, renames)
	assert.True(t, changed)
	assert.Equal(t, `INDIRECT("'Proc1_DATAIN'!B2")`, got)

	got, changed = Relocate(`=indirect( "datain!B"&ROW())+1`, renames)
	assert.True(t, changed)
	assert.Equal(t, `=indirect( "Proc1_DATAIN!B"&ROW())+1`, got)

	got, _ = Relocate(`INDIRECT("Data!R2C2",FALSE)`, renames)
	assert.Equal(t, `INDIRECT("'Proc 1 Data'!R2C2",FALSE)`, got)

	// literals that are not the INDIRECT argument stay as written
	got, changed = Relocate(`IF(A1,"DATAIN!B2",MYINDIRECT("DATAIN!B2"))`, renames)
	assert.False(t, changed)
	assert.Equal(t, `IF(A1,"DATAIN!B2",MYINDIRECT("DATAIN!B2"))`, got)

	got, changed = Relocate(`INDIRECT("B2")`, renames)
	assert.False(t, changed)
	assert.Equal(t, `INDIRECT("B2")`, got)
}

func TestRelocate_CaseInsensitiveSheetNames(t *testing.T) {
	got, changed := Relocate("'oldname'!A1", map[string]string{"OldName": "Fresh"})
	assert.True(t, changed)
	assert.Equal(t, "'Fresh'!A1", got)
}

func TestRelocate_MultipleRenames(t *testing.T) {
	renames := map[string]string{"Data": "P_Data", "Data2": "P_Data2", "Same": "Same"}
	got, changed := Relocate("Data!A1+Data2!A1+Same!A1", renames)
	assert.True(t, changed)
	assert.Equal(t, "P_Data!A1+P_Data2!A1+Same!A1", got)
}

func TestRelocate_NoRenames(t *testing.T) {
	got, changed := Relocate("Data!A1", nil)
	assert.False(t, changed)
	assert.Equal(t, "Data!A1", got)
}

func TestQualifier(t *testing.T) {
	assert.Equal(t, "Proc1_DATAIN", Qualifier("Proc1_DATAIN"))
	assert.Equal(t, "'A1'", Qualifier("A1"))
	assert.Equal(t, "'R1C1'", Qualifier("R1C1"))
	assert.Equal(t, "'TRUE'", Qualifier("TRUE"))
	assert.Equal(t, "'2024'", Qualifier("2024"))
	assert.Equal(t, "'My Sheet'", Qualifier("My Sheet"))
}
