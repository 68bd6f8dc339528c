package pool_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/taskhive/taskhive/core/pool"
	"github.com/taskhive/taskhive/core/types"
)

func testRoster() []pool.AgentConfig {
	return []pool.AgentConfig{
		{
			ID:             "sage",
			Name:           "Sage",
			Personality:    []string{"analytical", "thorough"},
			Specialization: []string{"science", "mathematics"},
			Curiosity:      0.5,
			LearningRate:   0.9,
		},
		{
			ID:             "scout",
			Name:           "Scout",
			Personality:    []string{"curious"},
			Specialization: []string{"research", "news"},
			Curiosity:      0.9,
			LearningRate:   0.7,
		},
	}
}

var _ = Describe("AgentPool", func() {
	var agents *pool.AgentPool

	BeforeEach(func() {
		var err error
		agents, err = pool.NewAgentPool(testRoster())
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("NewAgentPool", func() {
		It("rejects an empty roster", func() {
			_, err := pool.NewAgentPool(nil)
			Expect(err).To(HaveOccurred())
		})

		It("rejects duplicate agent IDs", func() {
			roster := testRoster()
			roster[1].ID = roster[0].ID
			_, err := pool.NewAgentPool(roster)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Score", func() {
		It("counts specialization tags matched by prompt tokens", func() {
			agent := agents.Get("sage")
			// "science" is a prompt token and a full tag; "math" is a
			// token that is a substring of "mathematics".
			score := pool.Score(agent, "explain the science behind math")
			// 0.3*0.5 + 0.2*0.9 + 0.5*2
			Expect(score).To(BeNumerically("~", 1.33, 1e-9))
		})

		It("is deterministic for identical inputs", func() {
			agent := agents.Get("scout")
			first := pool.Score(agent, "latest research news")
			second := pool.Score(agent, "latest research news")
			Expect(first).To(Equal(second))
		})
	})

	Describe("SelectAgent", func() {
		It("picks the highest scoring idle agent and marks it busy", func() {
			task := types.NewTask("alice", "summarize today's research news", nil, 0)
			agent, err := agents.SelectAgent(task)
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.ID).To(Equal("scout"))
			Expect(agent.Status).To(Equal(pool.AgentStatusBusy))
			Expect(agent.CurrentTask).To(Equal(task.ID))
		})

		It("breaks score ties by lowest agent ID", func() {
			roster := []pool.AgentConfig{
				{ID: "beta", Name: "Beta", Curiosity: 0.5, LearningRate: 0.5},
				{ID: "alpha", Name: "Alpha", Curiosity: 0.5, LearningRate: 0.5},
			}
			tied, err := pool.NewAgentPool(roster)
			Expect(err).NotTo(HaveOccurred())

			agent, err := tied.SelectAgent(types.NewTask("alice", "anything", nil, 0))
			Expect(err).NotTo(HaveOccurred())
			Expect(agent.ID).To(Equal("alpha"))
		})

		It("returns ErrNoAgentAvailable when every agent is busy", func() {
			agents.ForceStatus("sage", pool.AgentStatusBusy)
			agents.ForceStatus("scout", pool.AgentStatusBusy)

			_, err := agents.SelectAgent(types.NewTask("alice", "anything", nil, 0))
			Expect(err).To(MatchError(pool.ErrNoAgentAvailable))
		})

		It("never hands one agent to two concurrent selections", func() {
			var wg sync.WaitGroup
			selected := make(chan string, 10)
			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					task := types.NewTask("alice", "anything", nil, 0)
					if agent, err := agents.SelectAgent(task); err == nil {
						selected <- agent.ID
					}
				}()
			}
			wg.Wait()
			close(selected)

			ids := []string{}
			for id := range selected {
				ids = append(ids, id)
			}
			// Two agents exist, so at most two selections can succeed,
			// and they must be distinct agents.
			Expect(len(ids)).To(BeNumerically("<=", 2))
			if len(ids) == 2 {
				Expect(ids[0]).NotTo(Equal(ids[1]))
			}
		})
	})

	Describe("Release", func() {
		It("returns the agent to idle on both outcome paths", func() {
			task := types.NewTask("alice", "anything", nil, 0)
			agent, err := agents.SelectAgent(task)
			Expect(err).NotTo(HaveOccurred())

			agents.Release(agent.ID)

			released := agents.Get(agent.ID)
			Expect(released.Status).To(Equal(pool.AgentStatusIdle))
			Expect(released.CurrentTask).To(BeEmpty())
		})
	})

	Describe("AbsorbKnowledge", func() {
		It("stamps ingestion time and defaults confidence to 0.8", func() {
			now := time.Now()
			agents.AbsorbKnowledge("sage", []types.KnowledgeItem{
				{Query: "what is entropy", Topic: "entropy"},
				{Query: "what is enthalpy", Topic: "enthalpy", Confidence: 0.95},
			}, now)

			items := agents.AgentKnowledge("sage")
			Expect(items).To(HaveLen(2))
			Expect(items[0].Query).To(Equal("what is enthalpy"))
			Expect(items[0].Confidence).To(Equal(0.95))
			Expect(items[1].Confidence).To(Equal(0.8))
			Expect(items[1].Timestamp).To(Equal(now))
		})

		It("overwrites an item with the same query", func() {
			now := time.Now()
			agents.AbsorbKnowledge("sage", []types.KnowledgeItem{{Query: "q", Content: "old"}}, now)
			agents.AbsorbKnowledge("sage", []types.KnowledgeItem{{Query: "q", Content: "new"}}, now)

			items := agents.AgentKnowledge("sage")
			Expect(items).To(HaveLen(1))
			Expect(items[0].Content).To(Equal("new"))
		})
	})

	Describe("Statuses", func() {
		It("returns identical snapshots when nothing changed", func() {
			first := agents.Statuses()
			second := agents.Statuses()
			Expect(first).To(Equal(second))
		})

		It("reports knowledge base size per agent", func() {
			agents.AbsorbKnowledge("scout", []types.KnowledgeItem{{Query: "q"}}, time.Now())

			for _, snapshot := range agents.Statuses() {
				if snapshot.ID == "scout" {
					Expect(snapshot.KnowledgeBaseSize).To(Equal(1))
				} else {
					Expect(snapshot.KnowledgeBaseSize).To(BeZero())
				}
			}
		})
	})

	Describe("learning transitions", func() {
		It("only flips busy agents to learning and back", func() {
			agents.SetLearning("sage")
			Expect(agents.Get("sage").Status).To(Equal(pool.AgentStatusIdle))

			task := types.NewTask("alice", "science", nil, 0)
			agent, err := agents.SelectAgent(task)
			Expect(err).NotTo(HaveOccurred())

			agents.SetLearning(agent.ID)
			Expect(agents.Get(agent.ID).Status).To(Equal(pool.AgentStatusLearning))

			agents.SetBusy(agent.ID)
			Expect(agents.Get(agent.ID).Status).To(Equal(pool.AgentStatusBusy))
		})
	})
})
