package domain

// SampleScript は入力欄の「サンプル」ボタンで使う台本です。
const SampleScript = `INT. DINER - NIGHT

A classic, slightly worn-out American diner. Rain streaks down the large windows.

ARTHUR (40s), haggard and tired, sits in a booth, nursing a cup of coffee. He stares out the window, lost in thought.

A WAITRESS (60s), kind-faced but weary, approaches his table.

WAITRESS
Another refill, hon?

Arthur looks up, startled. He forces a smile.

ARTHUR
No, thanks. I should get going.

He fumbles in his pockets, pulling out a few crumpled bills. He leaves them on the table and stands up, pulling his trench coat tighter. As he walks towards the door, his eyes lock on a mysterious figure sitting in the corner, shrouded in shadows.`
