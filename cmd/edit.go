package main

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/plan"
)

// planMu serializes read-modify-write cycles on the plan file within one
// process. Concurrent processes are not coordinated.
var planMu sync.Mutex

// editPlan loads the plan at path, applies fn, checks the result and saves
// it. Nothing is written when fn or the check fails.
func editPlan(path string, fn func(p *model.Plan) error) (*model.Plan, error) {
	planMu.Lock()
	defer planMu.Unlock()

	p, err := plan.Load(path)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "edit rejected")
	}
	if err := plan.Save(path, p); err != nil {
		return nil, err
	}

	zap.L().Info("plan updated",
		zap.String("plan", path),
		zap.Int("services", len(p.Services)),
		zap.Int("blog", len(p.Blog)),
	)
	return p, nil
}

// readPlan loads the plan under the same lock editPlan uses.
func readPlan(path string) (*model.Plan, error) {
	planMu.Lock()
	defer planMu.Unlock()
	return plan.Load(path)
}
