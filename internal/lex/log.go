// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package lex

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Logger returns log tagged with the given component name. If log is nil,
// the standard logger is used.
//
func Logger(log logrus.FieldLogger, component string) logrus.FieldLogger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", component)
}

// LogError logs err at error level. If the cause of err is an *Error with a
// known line, the line is added as a field.
//
func LogError(log logrus.FieldLogger, err error) {
	if e, ok := errors.Cause(err).(*Error); ok {
		if e.Line != NoLine {
			log = log.WithField("line", e.Line)
		}
		log.Error(e.Msg)
		return
	}
	log.Error(err.Error())
}
