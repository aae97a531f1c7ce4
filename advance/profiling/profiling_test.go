package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLaunch(t *testing.T) {
	stop := Launch("127.0.0.1:0")
	assert.NotNil(t, stop)
	assert.NotPanics(t, stop)
}
