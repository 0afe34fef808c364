package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewAdvertiser_Defaults(t *testing.T) {
	a := NewAdvertiser(Config{})
	assert.Equal(t, DefaultName, a.config.Name)

	long := NewAdvertiser(Config{Name: strings.Repeat("x", 80)})
	assert.Len(t, long.config.Name, 63)
}

func TestAdvertiser_TXT(t *testing.T) {
	a := NewAdvertiser(Config{Version: "1.2.0"})
	assert.Equal(t, []string{"path=/ws", "cards=2", "version=1.2.0"}, a.TXT([]string{"living", "desk"}))

	bare := NewAdvertiser(Config{})
	assert.Equal(t, []string{"path=/ws", "cards=0"}, bare.TXT(nil))
}

func TestAdvertiser_ShutdownWithoutRegister(t *testing.T) {
	a := NewAdvertiser(Config{})
	a.Shutdown()
	a.Shutdown()
}
