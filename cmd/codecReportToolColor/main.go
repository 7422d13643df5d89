/*
 *    HoneyCodec event report expansion tool
 *
 *    Copyright (C) 2015, 2016  David Stainton
 *
 *    This program is free software: you can redistribute it and/or modify
 *    it under the terms of the GNU General Public License as published by
 *    the Free Software Foundation, either version 3 of the License, or
 *    (at your option) any later version.
 *
 *    This program is distributed in the hope that it will be useful,
 *    but WITHOUT ANY WARRANTY; without even the implied warranty of
 *    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *    GNU General Public License for more details.
 *
 *    You should have received a copy of the GNU General Public License
 *    along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"encoding/json"

	"github.com/fatih/color"

	"github.com/david415/HoneyCodec/logging"
)

// colorFor picks a color by how alarming the event class is: header
// and option malformations in yellow, attack signatures in red.
func colorFor(eventType string) func(format string, a ...interface{}) {
	switch {
	case strings.Contains(eventType, "XMAS"),
		strings.Contains(eventType, "NAPTHA"),
		strings.Contains(eventType, "SHAFT"),
		strings.Contains(eventType, "MULTICAST"):
		return color.Red
	case strings.HasPrefix(eventType, "TCPOPT"):
		return color.Yellow
	default:
		return color.Cyan
	}
}

func expandReport(reportPath string) {
	fmt.Printf("decoder event report: %s\n", reportPath)
	file, err := os.Open(reportPath)
	if err != nil {
		panic(err)
	}
	defer file.Close()
	reader := bufio.NewReader(file)

	perType := map[string]int{}

	line, err := reader.ReadString('\n')
	for err == nil {
		event := logging.SerializedEvent{}
		if jsonErr := json.Unmarshal([]byte(line), &event); jsonErr != nil {
			panic(jsonErr)
		}

		perType[event.Type]++
		paint := colorFor(event.Type)
		paint("%s  %s", event.Time, event.Type)
		fmt.Printf("  %s\n  %d -> %d\n  %s\n\n", event.Flow, event.SrcPort, event.DstPort, event.Description)

		line, err = reader.ReadString('\n')
	}

	eventTypes := make([]string, 0, len(perType))
	for eventType := range perType {
		eventTypes = append(eventTypes, eventType)
	}
	sort.Strings(eventTypes)

	fmt.Print("event totals:\n")
	for _, eventType := range eventTypes {
		paint := colorFor(eventType)
		paint("  %6d  %s", perType[eventType], eventType)
	}
}

func main() {
	flag.Parse()
	reports := flag.Args()

	for i := 0; i < len(reports); i++ {
		expandReport(reports[i])
	}
}
