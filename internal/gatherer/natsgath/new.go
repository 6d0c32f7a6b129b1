package natsgath

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type publisher interface {
	Publish(subj string, data []byte) error
}

// New creates a gatherer that publishes session events to the subject.
func New(pub publisher, sessionUuid string, subject string) *natsGatherer {
	return &natsGatherer{
		pub:         pub,
		subject:     subject,
		sessionUuid: sessionUuid,
	}
}

// Connect dials the NATS server at url. The returned close function
// flushes pending messages and drops the connection.
func Connect(url string, sessionUuid string, subject string) (*natsGatherer, func(), error) {
	nc, err := nats.Connect(url, nats.Name("autotester"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	closeFn := func() {
		_ = nc.FlushTimeout(5 * time.Second)
		nc.Close()
	}
	return New(nc, sessionUuid, subject), closeFn, nil
}
