package sqlcgen

type PermitCount struct {
	IssueDateYear    int32
	PermitType       string
	ZipCode          *int32
	PermitIssueCount int64
}
