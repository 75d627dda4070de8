package slurm

import "github.com/RobertHenschel/HierarchyBrowserv2/internal/model"

// Icon filenames served from this provider's resources directory.
const (
	partitionIcon = "./resources/Partition.png"
	jobIcon       = "./resources/Job.png"
	myJobIcon     = "./resources/Job_IDCard.png"
	personIcon    = "./resources/IDCard.png"
	groupIcon     = "./resources/Group.png"
)

// Job is one squeue row, parsed.
type Job struct {
	ID               string
	UserID           string
	NodeCount        int
	State            string
	Partition        string
	Name             string
	CPUs             int
	TotalMemory      string
	RequestedRuntime string
	Account          string
	ElapsedRuntime   string
	StateReason      string
	Priority         *int
	RemainingRuntime string
	Gres             string
	JobArray         bool
	Mine             bool
}

// Object converts the job row to its wire form.
func (j Job) Object() *model.Object {
	id := "/" + j.Partition + "/" + j.ID
	icon := jobIcon
	if j.Mine {
		icon = myJobIcon
	}
	o := model.New(model.ClassSlurmJob, id, j.ID, icon, 0)
	o.SetExtra("jobarray", j.JobArray)
	if j.UserID != "" {
		o.SetExtra("userid", j.UserID)
	}
	o.SetExtra("nodecount", j.NodeCount)
	if j.State != "" {
		o.SetExtra("jobstate", j.State)
	}
	if j.Partition != "" {
		o.SetExtra("partition", j.Partition)
	}
	if j.Name != "" {
		o.SetExtra("jobname", j.Name)
	}
	o.SetExtra("cpus", j.CPUs)
	if j.TotalMemory != "" {
		o.SetExtra("totalmemory", j.TotalMemory)
	}
	if j.RequestedRuntime != "" {
		o.SetExtra("requestedruntime", j.RequestedRuntime)
	}
	if j.Account != "" {
		o.SetExtra("account", j.Account)
	}
	if j.ElapsedRuntime != "" {
		o.SetExtra("elapsedruntime", j.ElapsedRuntime)
	}
	if j.StateReason != "" {
		o.SetExtra("state_reason", j.StateReason)
	}
	if j.Priority != nil {
		o.SetExtra("priority", *j.Priority)
	}
	if j.RemainingRuntime != "" {
		o.SetExtra("remainingruntime", j.RemainingRuntime)
	}
	if j.Gres != "" {
		o.SetExtra("gres", j.Gres)
	}
	return o
}

// newPartition builds the root-level partition object.
func newPartition(name string, jobCount int, isDefault bool) *model.Object {
	o := model.New(model.ClassSlurmPartition, "/"+name, name, partitionIcon, jobCount)
	o.SetExtra("isdefault", isDefault)
	return o
}
