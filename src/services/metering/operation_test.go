package metering_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"cdclag/src/domain"
	"cdclag/src/services/metering"
)

var _ = Describe("NormalizeOperation", func() {
	Context("with the Outboxx schema", func() {
		It("takes the canonical string from the top-level op field", func() {
			doc := map[string]any{"op": "INSERT", "data": map[string]any{}}
			Expect(metering.NormalizeOperation(doc, domain.SolutionOutboxx)).To(Equal(domain.OperationInsert))
		})

		It("yields a non-countable empty kind when op is absent", func() {
			doc := map[string]any{"data": map[string]any{}}
			op := metering.NormalizeOperation(doc, domain.SolutionOutboxx)
			Expect(op).To(Equal(domain.OperationKind("")))
			Expect(op.Countable()).To(BeFalse())
		})

		It("passes unknown operation strings through", func() {
			doc := map[string]any{"op": "TRUNCATE"}
			op := metering.NormalizeOperation(doc, domain.SolutionOutboxx)
			Expect(op).To(Equal(domain.OperationKind("TRUNCATE")))
			Expect(op.Countable()).To(BeFalse())
		})
	})

	Context("with the Debezium schema", func() {
		mapped := map[string]domain.OperationKind{
			"c": domain.OperationInsert,
			"u": domain.OperationUpdate,
			"d": domain.OperationDelete,
			"r": domain.OperationRead,
		}

		It("maps every code in the fixed table and passes the rest through", func() {
			for code := byte('a'); code <= 'z'; code++ {
				doc := map[string]any{"__op": string(code)}
				op := metering.NormalizeOperation(doc, domain.SolutionDebezium)

				if want, ok := mapped[string(code)]; ok {
					Expect(op).To(Equal(want), "code %q", string(code))
				} else {
					Expect(op).To(Equal(domain.OperationKind(string(code))), "code %q", string(code))
					Expect(op.Countable()).To(BeFalse(), "code %q", string(code))
				}
			}
		})

		It("treats a missing __op as a non-countable empty kind", func() {
			doc := map[string]any{"id": float64(1)}
			op := metering.NormalizeOperation(doc, domain.SolutionDebezium)
			Expect(op).To(Equal(domain.OperationKind("")))
			Expect(op.Countable()).To(BeFalse())
		})
	})

	It("only counts INSERT, UPDATE and DELETE", func() {
		Expect(domain.OperationInsert.Countable()).To(BeTrue())
		Expect(domain.OperationUpdate.Countable()).To(BeTrue())
		Expect(domain.OperationDelete.Countable()).To(BeTrue())
		Expect(domain.OperationRead.Countable()).To(BeFalse())
	})
})
