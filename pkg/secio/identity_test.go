package secio_test

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/p2pkit/secio/internal/mocks"
	"github.com/p2pkit/secio/pkg/identity"
	"github.com/p2pkit/secio/pkg/secio"
)

var _ = Describe("Identity", func() {
	var (
		ctrl   *gomock.Controller
		mock   *mocks.Identity
		host   *identity.HostKey
		peer   *identity.HostKey
		ctx    context.Context
		cancel context.CancelFunc
	)

	type outcome struct {
		session *secio.Session
		err     error
	}

	run := func(a, b secio.Config) (outcome, outcome) {
		connA, connB := secio.NewPipe()
		secure := func(conn io.ReadWriteCloser, config secio.Config) <-chan outcome {
			ch := make(chan outcome, 1)
			go func() {
				defer GinkgoRecover()
				s, err := secio.Secure(ctx, conn, config)
				if err != nil {
					conn.Close()
				}
				ch <- outcome{s, err}
			}()
			return ch
		}
		ra, rb := secure(connA, a), secure(connB, b)
		return <-ra, <-rb
	}

	BeforeEach(func() {
		var err error
		ctrl = gomock.NewController(GinkgoT())
		mock = mocks.NewIdentity(ctrl)
		host, err = identity.GenerateKey(identity.KeyTypeECDSA, rand.Reader)
		Expect(err).ToNot(HaveOccurred())
		peer, err = identity.GenerateKey(identity.KeyTypeEd25519, rand.Reader)
		Expect(err).ToNot(HaveOccurred())
		mock.EXPECT().PublicKeyBytes().Return(host.PublicKeyBytes()).AnyTimes()
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		DeferCleanup(func() {
			cancel()
			ctrl.Finish()
		})
	})

	It("signs the handshake transcript with a pluggable identity", func() {
		mock.EXPECT().Sign(gomock.Any()).DoAndReturn(host.Sign).Times(1)
		a, b := run(secio.Config{Identity: mock}, secio.Config{Identity: peer, ExpectedPeer: host.ID()})
		Expect(a.err).ToNot(HaveOccurred())
		Expect(b.err).ToNot(HaveOccurred())
		Expect(b.session.RemotePeer().ID()).To(Equal(host.ID()))
		Expect(b.session.RemotePeer().Type()).To(Equal(identity.KeyTypeECDSA))
		Expect(a.session.LocalPeer()).To(Equal(host.ID()))

		Expect(a.session.WriteMsg([]byte("ping"))).To(Succeed())
		msg, err := b.session.ReadMsg()
		Expect(err).ToNot(HaveOccurred())
		Expect(msg).To(Equal([]byte("ping")))
	})

	It("reports local signing failures", func() {
		failure := errors.New("token removed")
		mock.EXPECT().Sign(gomock.Any()).Return(nil, failure)
		a, b := run(secio.Config{Identity: mock}, secio.Config{Identity: peer})
		Expect(a.err).To(MatchError(secio.ErrSigningFailed))
		Expect(errors.Is(a.err, failure)).To(BeTrue())
		Expect(secio.Temporary(a.err)).To(BeFalse())
		Expect(b.err).To(HaveOccurred())
	})

	It("rejects signatures that don't verify", func() {
		mock.EXPECT().Sign(gomock.Any()).Return([]byte("not a signature"), nil)
		a, b := run(secio.Config{Identity: mock}, secio.Config{Identity: peer})
		Expect(b.err).To(MatchError(secio.ErrSignatureVerificationFailed))
		Expect(a.err).To(HaveOccurred())
	})

	It("rejects a peer that presents a different identity", func() {
		other, err := identity.GenerateKey(identity.KeyTypeEd25519, rand.Reader)
		Expect(err).ToNot(HaveOccurred())
		mock.EXPECT().Sign(gomock.Any()).Times(0)
		a, b := run(secio.Config{Identity: mock, ExpectedPeer: other.ID()}, secio.Config{Identity: peer})
		Expect(a.err).To(MatchError(secio.ErrIdentityMismatch))
		Expect(b.err).To(HaveOccurred())
	})
})
