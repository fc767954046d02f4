package metering_test

import (
	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cdclag/src/domain"
	"cdclag/src/services/metering"
)

var _ = Describe("Aggregator", func() {
	var aggregator *metering.Aggregator

	BeforeEach(func() {
		aggregator = metering.NewAggregator(nil)
	})

	It("starts with zeroed stats for both solutions", func() {
		snapshot := aggregator.Snapshot()

		Expect(snapshot).To(HaveKey(domain.SolutionOutboxx))
		Expect(snapshot).To(HaveKey(domain.SolutionDebezium))
		for _, stats := range snapshot {
			Expect(stats.MessagesTotal).To(BeZero())
			Expect(stats.LagCount).To(BeZero())
			Expect(stats.Operations).To(BeEmpty())
		}
	})

	Context("recording messages and operations", func() {
		It("counts raw messages independently of operations", func() {
			aggregator.RecordMessage(domain.SolutionOutboxx)
			aggregator.RecordMessage(domain.SolutionOutboxx)

			stats := aggregator.Snapshot()[domain.SolutionOutboxx]
			Expect(stats.MessagesTotal).To(Equal(uint64(2)))
			Expect(stats.Operations).To(BeEmpty())
		})

		It("counts only countable operations", func() {
			aggregator.RecordOperation(domain.SolutionDebezium, domain.OperationInsert)
			aggregator.RecordOperation(domain.SolutionDebezium, domain.OperationRead)
			aggregator.RecordOperation(domain.SolutionDebezium, domain.OperationKind("x"))

			stats := aggregator.Snapshot()[domain.SolutionDebezium]
			Expect(stats.Operations).To(Equal(map[domain.OperationKind]uint64{
				domain.OperationInsert: 1,
			}))
		})
	})

	Context("recording lag", func() {
		It("derives the exact average from sum and count", func() {
			for _, lag := range []float64{0.1, 0.3, 0.2} {
				aggregator.RecordLag(domain.SolutionOutboxx, lag, 1696611761.0)
			}

			stats := aggregator.Snapshot()[domain.SolutionOutboxx]
			Expect(stats.LagCount).To(Equal(uint64(3)))
			Expect(stats.AvgLag()).To(BeNumerically("~", 0.2, 1e-9))
		})

		It("keeps the last-seen markers at the latest observation", func() {
			aggregator.RecordLag(domain.SolutionDebezium, 0.5, 1696611761.0)
			aggregator.RecordLag(domain.SolutionDebezium, 0.25, 1696611762.0)

			stats := aggregator.Snapshot()[domain.SolutionDebezium]
			Expect(stats.LastLag).To(Equal(0.25))
			Expect(stats.LastEventTime).To(Equal(1696611762.0))
		})

		It("discards negative lag", func() {
			aggregator.RecordLag(domain.SolutionOutboxx, -0.1, 1696611761.0)

			stats := aggregator.Snapshot()[domain.SolutionOutboxx]
			Expect(stats.LagCount).To(BeZero())
			Expect(stats.LagSum).To(BeZero())
		})

		It("reports a zero average before the first observation", func() {
			stats := aggregator.Snapshot()[domain.SolutionOutboxx]
			Expect(stats.AvgLag()).To(BeZero())
		})
	})

	It("returns snapshots detached from the live state", func() {
		aggregator.RecordOperation(domain.SolutionOutboxx, domain.OperationInsert)

		before := aggregator.Snapshot()
		before[domain.SolutionOutboxx].Operations[domain.OperationDelete] = 99

		after := aggregator.Snapshot()
		Expect(after[domain.SolutionOutboxx].Operations).To(Equal(map[domain.OperationKind]uint64{
			domain.OperationInsert: 1,
		}))
	})

	It("creates stats lazily for solutions not known at construction", func() {
		scoped := metering.NewAggregator(nil, domain.SolutionOutboxx)
		scoped.RecordMessage(domain.SolutionDebezium)

		Expect(scoped.Snapshot()[domain.SolutionDebezium].MessagesTotal).To(Equal(uint64(1)))
	})

	It("keeps lag counts within countable operation counts under mixed traffic", func() {
		aggregator.RecordOperation(domain.SolutionOutboxx, domain.OperationInsert)
		aggregator.RecordOperation(domain.SolutionOutboxx, domain.OperationUpdate)
		aggregator.RecordLag(domain.SolutionOutboxx, 0.1, 1696611761.0)

		stats := aggregator.Snapshot()[domain.SolutionOutboxx]
		var countable uint64
		for op, count := range stats.Operations {
			if op.Countable() {
				countable += count
			}
		}
		Expect(stats.LagCount).To(BeNumerically("<=", countable))
	})

	It("produces comparable snapshots", func() {
		aggregator.RecordMessage(domain.SolutionOutboxx)
		first := aggregator.Snapshot()
		second := aggregator.Snapshot()

		Expect(cmp.Diff(first, second)).To(BeEmpty())
	})
})
