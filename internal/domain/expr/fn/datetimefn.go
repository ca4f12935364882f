package fn

import (
	"time"

	"github.com/xacmlgo/pdp/internal/domain/evalctx"
	"github.com/xacmlgo/pdp/internal/domain/expr"
	"github.com/xacmlgo/pdp/internal/domain/value"
)

func addDayTime(t time.Time, d value.DayTimeDurationVal, subtract bool) time.Time {
	secs := d.TotalSeconds()
	if subtract {
		secs = -secs
	}
	return t.Add(time.Duration(secs * float64(time.Second)))
}

func addYearMonth(t time.Time, d value.YearMonthDurationVal, subtract bool) time.Time {
	months := d.TotalMonths()
	if subtract {
		months = -months
	}
	return t.AddDate(0, months, 0)
}

func dateTimeDurationFunc(uri string, subtract bool) *expr.Function {
	return &expr.Function{
		URI: uri,
		Arity: expr.Arity{Min: 2, Max: 2},
		ReturnType: value.TypeDateTime,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			dtVal, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			if dtVal.Type != value.TypeDateTime {
				return indetf(uri + ": expected dateTime")
			}
			durVal, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			t := dtVal.Payload.(value.DateTimeVal).T
			switch d := durVal.Payload.(type) {
			case value.DayTimeDurationVal:
				if durVal.Type != value.TypeDayTimeDur {
					return indetf(uri + ": type mismatch")
				}
				t = addDayTime(t, d, subtract)
			case value.YearMonthDurationVal:
				if durVal.Type != value.TypeYearMonDur {
					return indetf(uri + ": type mismatch")
				}
				t = addYearMonth(t, d, subtract)
			default:
				return indetf(uri + ": unsupported duration type")
			}
			return expr.Val(value.Of(value.TypeDateTime, value.DateTimeVal{T: t}))
		},
	}
}

func dateDurationFunc(uri string, subtract bool) *expr.Function {
	return &expr.Function{
		URI: uri,
		Arity: expr.Arity{Min: 2, Max: 2},
		ReturnType: value.TypeDate,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			dateVal, errRes := evalScalar(ctx, args[0])
			if errRes != nil {
				return *errRes
			}
			if dateVal.Type != value.TypeDate {
				return indetf(uri + ": expected date")
			}
			durVal, errRes := evalScalar(ctx, args[1])
			if errRes != nil {
				return *errRes
			}
			if durVal.Type != value.TypeYearMonDur {
				return indetf(uri + ": type mismatch")
			}
			d := dateVal.Payload.(value.DateVal)
			months := durVal.Payload.(value.YearMonthDurationVal).TotalMonths()
			if subtract {
				months = -months
			}
			base := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
			out := value.DateVal{Year: base.Year(), Month: int(base.Month()), Day: base.Day(), HasZone: d.HasZone, Zone: d.Zone}
			return expr.Val(value.Of(value.TypeDate, out))
		},
	}
}

// currentDateTimeFunc is the niladic form of current-dateTime/current-date/
// current-time: the policy side of the same fixed instant
// RequestContext.CurrentDateTime exposes for the environment:current-dateTime
// attribute — a Condition can call either the function or the
// designator and get the same answer.
func currentDateTimeFunc(uri, returnType string, project func(value.DateTimeVal) value.Value) *expr.Function {
	return &expr.Function{
		URI: uri,
		Arity: expr.Arity{Min: 0, Max: 0},
		ReturnType: returnType,
		Eval: func(ctx *evalctx.RequestContext, args []expr.Expression) expr.EvaluationResult {
			return expr.Val(project(ctx.CurrentDateTime().Payload.(value.DateTimeVal)))
		},
	}
}

func init() {
	register(dateTimeDurationFunc("urn:oasis:names:tc:xacml:3.0:function:dateTime-add-dayTimeDuration", false))
	register(dateTimeDurationFunc("urn:oasis:names:tc:xacml:3.0:function:dateTime-subtract-dayTimeDuration", true))
	register(dateTimeDurationFunc("urn:oasis:names:tc:xacml:3.0:function:dateTime-add-yearMonthDuration", false))
	register(dateTimeDurationFunc("urn:oasis:names:tc:xacml:3.0:function:dateTime-subtract-yearMonthDuration", true))
	register(dateDurationFunc("urn:oasis:names:tc:xacml:3.0:function:date-add-yearMonthDuration", false))
	register(dateDurationFunc("urn:oasis:names:tc:xacml:3.0:function:date-subtract-yearMonthDuration", true))

	register(currentDateTimeFunc("urn:oasis:names:tc:xacml:1.0:function:current-dateTime", value.TypeDateTime, func(dt value.DateTimeVal) value.Value {
		return value.Of(value.TypeDateTime, dt)
	}))
	register(currentDateTimeFunc("urn:oasis:names:tc:xacml:1.0:function:current-date", value.TypeDate, func(dt value.DateTimeVal) value.Value {
		return value.Of(value.TypeDate, value.DateVal{Year: dt.T.Year(), Month: int(dt.T.Month()), Day: dt.T.Day(), HasZone: true, Zone: dt.T.Location()})
	}))
	register(currentDateTimeFunc("urn:oasis:names:tc:xacml:1.0:function:current-time", value.TypeTime, func(dt value.DateTimeVal) value.Value {
		return value.Of(value.TypeTime, value.TimeVal{Hour: dt.T.Hour(), Min: dt.T.Minute(), Sec: dt.T.Second(), Nanosec: dt.T.Nanosecond(), HasZone: true, Zone: dt.T.Location()})
	}))
}
