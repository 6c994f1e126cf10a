package all

import (
	// Initialize all sources by importing this package
	_ "github.com/compose/dataflow/source/file"
	_ "github.com/compose/dataflow/source/seq"
	_ "github.com/compose/dataflow/source/stdin"
)
