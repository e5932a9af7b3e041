package sql

import (
	"embed"
)

// Migrations holds the schema DDL, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/truncate_warehouse.sql
var TruncateWarehouse string

//go:embed queries/insert_load_run.sql
var InsertLoadRun string

//go:embed queries/report_overview.sql
var ReportOverview string

//go:embed queries/report_risk_factors.sql
var ReportRiskFactors string

//go:embed queries/report_smoking.sql
var ReportSmoking string

//go:embed queries/report_age_group.sql
var ReportAgeGroup string

//go:embed queries/report_bmi_category.sql
var ReportBMICategory string

//go:embed queries/report_quarterly.sql
var ReportQuarterly string

//go:embed queries/report_monthly.sql
var ReportMonthly string
