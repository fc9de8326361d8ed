package model

// ClassificationMetrics summarizes predictions against true labels.
// Precision, recall and F1 are support-weighted averages over classes; a
// class with an undefined ratio contributes zero.
type ClassificationMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluate computes metrics for binary labels.
func Evaluate(yTrue, yPred []int) ClassificationMetrics {
	n := len(yTrue)
	if n == 0 || n != len(yPred) {
		return ClassificationMetrics{}
	}
	var tp, fp, fn, support [2]float64
	correct := 0
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		support[t]++
		if t == p {
			correct++
			tp[t]++
			continue
		}
		fp[p]++
		fn[t]++
	}

	m := ClassificationMetrics{Accuracy: float64(correct) / float64(n), Support: n}
	for c := 0; c < 2; c++ {
		if support[c] == 0 {
			continue
		}
		prec := ratio(tp[c], tp[c]+fp[c])
		rec := ratio(tp[c], tp[c]+fn[c])
		f1 := ratio(2*prec*rec, prec+rec)
		w := support[c] / float64(n)
		m.Precision += w * prec
		m.Recall += w * rec
		m.F1 += w * f1
	}
	return m
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
