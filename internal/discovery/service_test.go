package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnnouncer struct {
	text     []string
	shutdown bool
}

func (f *fakeAnnouncer) SetText(text []string) { f.text = text }
func (f *fakeAnnouncer) Shutdown()             { f.shutdown = true }

func newTestService(t *testing.T) (*Service, *fakeAnnouncer, *string) {
	t.Helper()
	fake := &fakeAnnouncer{}
	var service string
	s := NewService(8080)
	s.localIP = func() (string, error) { return "10.0.0.7", nil }
	s.register = func(instance, svc, domain string, port int, text []string) (announcer, error) {
		service = svc
		fake.text = text
		return fake, nil
	}
	return s, fake, &service
}

func TestStartAnnouncesService(t *testing.T) {
	s, fake, service := newTestService(t)

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	assert.Equal(t, ServiceType, *service)
	assert.Equal(t, "10.0.0.7", s.GetServerIP())
	assert.Equal(t, []string{"api=/api", "ip=10.0.0.7", "version=1.0", "ws=/ws"}, fake.text)

	// segunda chamada é no-op
	require.NoError(t, s.Start())

	s.Stop()
	assert.True(t, fake.shutdown)
	assert.False(t, s.IsRunning())
}

func TestSetRaceNameUpdatesText(t *testing.T) {
	s, fake, _ := newTestService(t)

	s.SetRaceName("Copa Pattaya")
	require.NoError(t, s.Start())
	assert.Contains(t, fake.text, "race=Copa Pattaya")

	s.SetRaceName("Final")
	assert.Contains(t, fake.text, "race=Final")

	s.SetRaceName("")
	assert.NotContains(t, fake.text, "race=Final")
	assert.Len(t, fake.text, 4)
}

func TestStartFailures(t *testing.T) {
	s, _, _ := newTestService(t)
	s.localIP = func() (string, error) { return "", errors.New("sem rede") }
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())

	s, _, _ = newTestService(t)
	s.register = func(string, string, string, int, []string) (announcer, error) {
		return nil, errors.New("porta mDNS ocupada")
	}
	assert.ErrorContains(t, s.Start(), "porta mDNS ocupada")
}
