package mcpserver

// WeekNumberingContract describes how moments are filed under weeks, so
// assistants pick the same week a person using the app would.
const WeekNumberingContract = `# fiftytwo Week Numbering

Every moment is filed under a (year, week) pair. Weeks are counted from
January 1, not by ISO-8601 rules.

## Rules

1. **Week 1 starts on January 1**, whatever weekday that is.
2. **Week N covers** January 1 + (N-1)*7 days through six days later.
   For 2024: week 1 is Jan 1-7, week 2 is Jan 8-14, week 10 is Mar 4-10.
3. **The current week** is (day of year - 1) / 7 + 1. The last day of the
   year (the last two in leap years) falls into week 53.
4. **Valid week numbers** are 1 through 53. Pickers offer 1-52.
5. **The year** is stored separately from the date the moment was written.
   A moment about week 52 of 2023 written in January 2024 has year 2023.
6. **Several moments per week are allowed.** Within a week, the most
   recently written moment comes first in the timeline.

## Ordering

- Timeline (` + "`list_moments`" + ` without year): newest year first, then
  highest week first.
- Year review (` + "`year_review`" + `, ` + "`list_moments`" + ` with year): week 1 first.

## Photos

Photos are stored inline as ` + "`data:<mime>;base64,...`" + ` URLs. Use the
` + "`attach_photo`" + ` tool; it downsizes large images before storing.
`
