package verify

import "github.com/ternarybob/arbor"

func testLogger() arbor.ILogger {
	return arbor.NewLogger()
}
