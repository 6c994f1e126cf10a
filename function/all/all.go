package all

import (
	// Initialize all functions by importing this package
	_ "github.com/compose/dataflow/function/gojajs"
	_ "github.com/compose/dataflow/function/omit"
	_ "github.com/compose/dataflow/function/pick"
	_ "github.com/compose/dataflow/function/pretty"
	_ "github.com/compose/dataflow/function/rename"
	_ "github.com/compose/dataflow/function/skip"
)
