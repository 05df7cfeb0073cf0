// Package domain models the AuroraWatch UK geomagnetic activity feed.
//
// # Data Source
//
// The Lancaster University AuroraWatch API publishes a rolling summary of
// geomagnetic activity as XML, by default at
// https://aurorawatch-api.lancs.ac.uk/0.2.5/status/project/awn/sum-activity.xml.
// The service polls this document on a schedule; each poll yields at most a
// few dozen hourly observations.
//
// # Feed Shape
//
//	<sum_activity api_version="0.2.5">
//	  <updated><datetime>2024-12-11T21:46:06+0000</datetime></updated>
//	  <lower_threshold status_id="yellow">50</lower_threshold>
//	  <activity status_id="green">
//	    <datetime>2024-12-10T22:00:00+0000</datetime>
//	    <value>7.9</value>
//	  </activity>
//	</sum_activity>
//
// The root element name is not significant. Timestamps always carry a UTC
// offset, written either as "+0000" or "+00:00" (a bare "Z" is also accepted).
//
// # Status Levels
//
// Activity is graded green, yellow, amber and red in nT. Lower thresholds are
// integers and are reported alongside the observations; the service passes
// them through for display and does not enforce them.
//
// # Records
//
// Each activity becomes a [StatusRecord] keyed by status and epoch second
// ([KeyComposite]) or, for stores created by the legacy single-key schema, by
// status alone ([KeyStatus]). Values are kept as decimals so that the textual
// magnitude published by the feed is never rounded through float64.
package domain
