package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.MarkRunRunningActivity)
	w.RegisterActivity(a.LoadSettingsActivity)
	w.RegisterActivity(a.IngestCorpusActivity)
	w.RegisterActivity(a.AnalyzePaperActivity)
	w.RegisterActivity(a.AssignThemesActivity)
	w.RegisterActivity(a.AssembleReviewActivity)
	w.RegisterActivity(a.FinishRunActivity)
}
