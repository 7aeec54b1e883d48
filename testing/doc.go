// Package testing holds shared test helpers for go-enrich.
//
// The mocks subpackage provides testify-based mocks for httpclient.Client,
// enrichment.Store and enrichment.PeopleEnricher. The fixtures subpackage
// provides canned provider documents and pre-wired mocks built from them.
//
//	import (
//		"github.com/gaborage/go-enrich/testing/fixtures"
//		"github.com/gaborage/go-enrich/testing/mocks"
//	)
package testing
