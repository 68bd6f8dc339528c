package usercontext_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/taskhive/taskhive/core/usercontext"
)

var _ = Describe("Builder", func() {
	var (
		store   *usercontext.JSONStore
		builder *usercontext.Builder
		tmpDir  string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "taskhive-contexts-*")
		Expect(err).ToNot(HaveOccurred())

		store, err = usercontext.NewJSONStore(filepath.Join(tmpDir, "contexts.json"))
		Expect(err).ToNot(HaveOccurred())
		builder = usercontext.NewBuilder(store)
	})

	AfterEach(func() {
		store.Close()
		os.RemoveAll(tmpDir)
	})

	It("returns an empty default context for an unknown user", func() {
		ctx, err := builder.BuildContext("nobody", "hello")
		Expect(err).ToNot(HaveOccurred())
		Expect(ctx.UserID).To(Equal("nobody"))
		Expect(ctx.Interests).To(BeEmpty())
		Expect(ctx.Interactions).To(Equal(0))
		Expect(ctx.Data).ToNot(BeNil())
	})

	It("unions interests without ever removing one", func() {
		Expect(builder.UpdateUserContext("u1", []string{"physics", "music"}, nil)).To(Succeed())
		Expect(builder.UpdateUserContext("u1", []string{"music", "chess"}, nil)).To(Succeed())

		ctx, err := builder.BuildContext("u1", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(ctx.Interests).To(ConsistOf("physics", "music", "chess"))
	})

	It("increments the interaction count on every update", func() {
		for i := 0; i < 3; i++ {
			Expect(builder.UpdateUserContext("u2", nil, nil)).To(Succeed())
		}

		ctx, err := builder.BuildContext("u2", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(ctx.Interactions).To(Equal(3))
		Expect(ctx.LastSeen).ToNot(BeZero())
	})

	It("merges auxiliary data keys", func() {
		Expect(builder.UpdateUserContext("u3", nil, map[string]interface{}{"tone": "formal"})).To(Succeed())
		Expect(builder.UpdateUserContext("u3", nil, map[string]interface{}{"lang": "en"})).To(Succeed())

		ctx, err := builder.BuildContext("u3", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(ctx.Data).To(HaveKeyWithValue("tone", "formal"))
		Expect(ctx.Data).To(HaveKeyWithValue("lang", "en"))
	})

	It("keeps contexts isolated per user", func() {
		Expect(builder.UpdateUserContext("alice", []string{"biology"}, nil)).To(Succeed())
		Expect(builder.UpdateUserContext("bob", []string{"history"}, nil)).To(Succeed())

		alice, err := builder.BuildContext("alice", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(alice.Interests).To(ConsistOf("biology"))

		bob, err := builder.BuildContext("bob", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(bob.Interests).To(ConsistOf("history"))
	})

	It("persists contexts across store reopen", func() {
		Expect(builder.UpdateUserContext("u4", []string{"astronomy"}, nil)).To(Succeed())

		reopened, err := usercontext.NewJSONStore(filepath.Join(tmpDir, "contexts.json"))
		Expect(err).ToNot(HaveOccurred())
		defer reopened.Close()

		ctx, err := usercontext.NewBuilder(reopened).BuildContext("u4", "anything")
		Expect(err).ToNot(HaveOccurred())
		Expect(ctx.Interests).To(ConsistOf("astronomy"))
		Expect(ctx.Interactions).To(Equal(1))
	})
})
