package classifier

// ClassMetrics is one line of the classification report.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarises held-out performance.
type Report struct {
	Accuracy    float64        `json:"accuracy"`
	Classes     []ClassMetrics `json:"classes"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	TrainRows   int            `json:"train_rows"`
	TestRows    int            `json:"test_rows"`
}

// Evaluate compares predicted class indices against truth. Undefined
// precision or recall (zero denominators) count as 0.
func Evaluate(classes []string, truth, predicted []int) Report {
	n := len(classes)
	tp := make([]int, n)
	predCount := make([]int, n)
	support := make([]int, n)
	correct := 0
	for i := range truth {
		support[truth[i]]++
		predCount[predicted[i]]++
		if truth[i] == predicted[i] {
			tp[truth[i]]++
			correct++
		}
	}

	report := Report{Classes: make([]ClassMetrics, n)}
	if len(truth) > 0 {
		report.Accuracy = float64(correct) / float64(len(truth))
	}
	var macro, weighted ClassMetrics
	total := 0
	for c := 0; c < n; c++ {
		m := ClassMetrics{Label: classes[c], Support: support[c]}
		m.Precision = ratio(tp[c], predCount[c])
		m.Recall = ratio(tp[c], support[c])
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		report.Classes[c] = m

		macro.Precision += m.Precision
		macro.Recall += m.Recall
		macro.F1 += m.F1
		w := float64(m.Support)
		weighted.Precision += w * m.Precision
		weighted.Recall += w * m.Recall
		weighted.F1 += w * m.F1
		total += m.Support
	}
	if n > 0 {
		macro.Precision /= float64(n)
		macro.Recall /= float64(n)
		macro.F1 /= float64(n)
	}
	if total > 0 {
		weighted.Precision /= float64(total)
		weighted.Recall /= float64(total)
		weighted.F1 /= float64(total)
	}
	macro.Label, macro.Support = "macro avg", total
	weighted.Label, weighted.Support = "weighted avg", total
	report.MacroAvg, report.WeightedAvg = macro, weighted
	return report
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
