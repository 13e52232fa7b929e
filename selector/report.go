package selector

import "github.com/launchdarkly/go-jsonstream/v3/jwriter"

// BuildReportString returns a JSON document describing the chosen candidate and the score of
// every candidate that was evaluated
func (s *Selection) BuildReportString() string {
	writer := jwriter.NewWriter()
	obj := writer.Object()

	chosenObj := obj.Name("Chosen").Object()
	chosenObj.Name("Index").Int(s.Index)
	chosenObj.Name("Name").String(s.Candidate.Name)
	chosenObj.Name("Type").String(DeviceTypeName(s.Candidate.Type))
	chosenObj.Name("Score").Int(s.Score)
	chosenObj.Name("GraphicsFamily").Int(s.GraphicsFamily)
	chosenObj.Name("PresentFamily").Int(s.PresentFamily)
	chosenObj.End()

	candidates := obj.Name("Candidates").Array()
	for _, score := range s.Report {
		candidateObj := candidates.Object()
		candidateObj.Name("Index").Int(score.Index)
		candidateObj.Name("Name").String(score.Name)
		candidateObj.Name("Score").Int(score.Score)
		candidateObj.Name("Eligible").Bool(score.Eligible)
		if score.FailedCheck != "" {
			candidateObj.Name("FailedCheck").String(score.FailedCheck)
		}
		candidateObj.End()
	}
	candidates.End()

	obj.End()

	return string(writer.Bytes())
}
