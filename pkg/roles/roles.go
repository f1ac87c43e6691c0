package roles

// Role is the permission level of a health unit user.
type Role string

const (
	HealthWorker Role = "health_worker"
	Coordinator  Role = "coordinator"
	Admin        Role = "admin"
)

// HierarchyLevel orders roles; a higher level includes the lower ones.
type HierarchyLevel int

const (
	UnknownLevel      HierarchyLevel = 0
	HealthWorkerLevel HierarchyLevel = 1
	CoordinatorLevel  HierarchyLevel = 2
	AdminLevel        HierarchyLevel = 3
)

func (r Role) GetHierarchyLevel() HierarchyLevel {
	switch r {
	case HealthWorker:
		return HealthWorkerLevel
	case Coordinator:
		return CoordinatorLevel
	case Admin:
		return AdminLevel
	default:
		return UnknownLevel
	}
}

// HasPermission reports whether r may act as requiredRole.
func (r Role) HasPermission(requiredRole Role) bool {
	if !r.IsValid() || !requiredRole.IsValid() {
		return false
	}
	return r.GetHierarchyLevel() >= requiredRole.GetHierarchyLevel()
}

func (r Role) IsValid() bool {
	switch r {
	case HealthWorker, Coordinator, Admin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
