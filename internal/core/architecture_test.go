package core

import (
	"testing"

	"tutorcore/testutil"
)

func TestCoreDoesNotImportAdapters(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AdapterImportForbidden, "catalogs must not depend on delivery adapters")
}
