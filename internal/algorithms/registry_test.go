package algorithms_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/p2pkit/secio/internal/algorithms"
)

var _ = Describe("Registry", func() {
	Describe("catalogs", func() {
		It("lists every curve with a unique wire name", func() {
			seen := map[string]bool{}
			for _, c := range algorithms.AllCurves() {
				Expect(seen).ToNot(HaveKey(c.String()))
				seen[c.String()] = true
				parsed, err := algorithms.ParseCurve(c.String())
				Expect(err).ToNot(HaveOccurred())
				Expect(parsed).To(Equal(c))
			}
			Expect(seen).To(HaveKey("P-384"))
		})

		It("reports fixed cipher parameters", func() {
			Expect(algorithms.AES256.KeySize()).To(Equal(32))
			Expect(algorithms.AES256.IVSize()).To(Equal(16))
			Expect(algorithms.AES128.KeySize()).To(Equal(16))
			Expect(algorithms.ChaCha20.IVSize()).To(Equal(12))
			Expect(algorithms.Blowfish.IVSize()).To(Equal(8))
			for _, c := range algorithms.AllCiphers() {
				parsed, err := algorithms.ParseCipher(c.String())
				Expect(err).ToNot(HaveOccurred())
				Expect(parsed).To(Equal(c))
			}
		})

		It("reports fixed hash parameters", func() {
			Expect(algorithms.SHA256.KeySize()).To(Equal(20))
			Expect(algorithms.SHA256.DigestSize()).To(Equal(32))
			Expect(algorithms.SHA512.DigestSize()).To(Equal(64))
			Expect(algorithms.BLAKE2b256.DigestSize()).To(Equal(32))
			for _, h := range algorithms.AllHashes() {
				parsed, err := algorithms.ParseHash(h.String())
				Expect(err).ToNot(HaveOccurred())
				Expect(parsed).To(Equal(h))
			}
		})

		It("returns copies of the catalog", func() {
			curves := algorithms.AllCurves()
			curves[0] = algorithms.X25519
			Expect(algorithms.AllCurves()[0]).To(Equal(algorithms.P256))
		})

		It("rejects unknown names", func() {
			_, err := algorithms.ParseCipher("DES")
			Expect(err).To(HaveOccurred())
			_, err = algorithms.ParseHash("MD5")
			Expect(err).To(HaveOccurred())
			_, err = algorithms.ParseCurve("P-192")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("name lists", func() {
		It("joins and splits comma-separated lists", func() {
			names := algorithms.Names([]algorithms.Cipher{algorithms.AES256, algorithms.Blowfish})
			Expect(names).To(Equal([]string{"AES-256", "Blowfish"}))
			list := strings.Join(names, ",")
			Expect(algorithms.SplitNames(list)).To(Equal([]string{"AES-256", "Blowfish"}))
			Expect(algorithms.SplitNames(" P-256,,X25519 ")).To(Equal([]string{"P-256", "X25519"}))
			Expect(algorithms.SplitNames("")).To(BeEmpty())
		})
	})

	Describe("SelectBest", func() {
		local := []string{"AES-256", "AES-128", "Blowfish"}
		remote := []string{"Blowfish", "AES-128"}

		It("prefers the local list when ordering is Greater", func() {
			choice, ok := algorithms.SelectBest(algorithms.Greater, local, remote)
			Expect(ok).To(BeTrue())
			Expect(choice).To(Equal("AES-128"))
		})

		It("prefers the remote list when ordering is Less", func() {
			choice, ok := algorithms.SelectBest(algorithms.Less, local, remote)
			Expect(ok).To(BeTrue())
			Expect(choice).To(Equal("Blowfish"))
		})

		It("agrees from both sides", func() {
			a, _ := algorithms.SelectBest(algorithms.Greater, local, remote)
			b, _ := algorithms.SelectBest(algorithms.Less, remote, local)
			Expect(a).To(Equal(b))
		})

		It("fails without overlap", func() {
			_, ok := algorithms.SelectBest(algorithms.Greater, local, []string{"ChaCha20"})
			Expect(ok).To(BeFalse())
		})
	})

	Describe("Ordering", func() {
		It("swaps key halves only for Less", func() {
			Expect(algorithms.Less.Swapped()).To(BeTrue())
			Expect(algorithms.Greater.Swapped()).To(BeFalse())
			Expect(algorithms.Equal.String()).To(Equal("equal"))
		})
	})
})
